package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ava-labs/libevm/common"
	"github.com/gin-gonic/gin"

	"github.com/civicchain/petition-discovery/pkg/contract"
	"github.com/civicchain/petition-discovery/pkg/discovery"
	"github.com/civicchain/petition-discovery/pkg/petition"
	"github.com/civicchain/petition-discovery/pkg/signers"
)

// Signer list status values.
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
)

type handlers struct {
	svc Discovery
}

// ListResponse is the body of GET /petitions.
type ListResponse struct {
	Mode      petition.Mode     `json:"mode"`
	Count     int               `json:"count"`
	Petitions []petition.Record `json:"petitions"`
}

// SignersResponse is the body of GET /petitions/:id/signers.
type SignersResponse struct {
	PetitionID uint64   `json:"petitionId"`
	Status     string   `json:"status"`
	Count      int      `json:"count"`
	Signers    []string `json:"signers"`
	Err        string   `json:"err,omitempty"`
}

type signedResponse struct {
	PetitionID uint64 `json:"petitionId"`
	Address    string `json:"address"`
	Signed     bool   `json:"signed"`
}

func (h handlers) List(c *gin.Context) {
	mode, err := petition.ParseMode(c.Query("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"err": "limit must be a non-negative integer"})
			return
		}
	}

	records, err := h.svc.List(c.Request.Context(), discovery.Query{
		Mode:    mode,
		Search:  c.Query("q"),
		Creator: c.Query("creator"),
		Limit:   limit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Mode: mode, Count: len(records), Petitions: records})
}

func (h handlers) Get(c *gin.Context) {
	id, ok := petitionID(c)
	if !ok {
		return
	}
	rec, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Signers always answers 200; a failed lookup is reported as unavailable so
// the client can tell it apart from a petition with no signers.
func (h handlers) Signers(c *gin.Context) {
	id, ok := petitionID(c)
	if !ok {
		return
	}
	res := h.svc.Signers(c.Request.Context(), id)
	if res.Failed() {
		_ = c.Error(res.Err)
	}
	c.JSON(http.StatusOK, NewSignersResponse(res))
}

// NewSignersResponse renders a resolution result. The underlying error is not
// exposed; a failure is reported as StatusUnavailable with an empty list.
func NewSignersResponse(res signers.Result) SignersResponse {
	resp := SignersResponse{
		PetitionID: res.PetitionID,
		Status:     StatusOK,
		Count:      len(res.Signers),
		Signers:    res.Signers,
	}
	if res.Failed() {
		resp.Status = StatusUnavailable
		resp.Err = "signer list could not be loaded"
	}
	if resp.Signers == nil {
		resp.Signers = []string{}
	}
	return resp
}

func (h handlers) HasSigned(c *gin.Context) {
	id, ok := petitionID(c)
	if !ok {
		return
	}
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "bad address"})
		return
	}
	signed, err := h.svc.HasSigned(c.Request.Context(), id, address)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, signedResponse{
		PetitionID: id,
		Address:    strings.ToLower(common.HexToAddress(address).Hex()),
		Signed:     signed,
	})
}

func (h handlers) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func petitionID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "bad petition id"})
		return 0, false
	}
	return id, true
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, contract.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"err": "petition not found"})
	case errors.Is(err, petition.ErrUnknownMode):
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"err": "upstream chain read failed"})
	}
}
