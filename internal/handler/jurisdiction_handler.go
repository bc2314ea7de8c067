package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/pkg/response"
)

// JurisdictionInfo describes one supported jurisdiction
type JurisdictionInfo struct {
	Code    jurisdiction.Code `json:"code"`
	Name    string            `json:"name"`
	Country string            `json:"country"`
	IFTA    bool              `json:"ifta"`
}

// ListJurisdictions handles GET /api/v1/jurisdictions
func ListJurisdictions(c *gin.Context) {
	codes := jurisdiction.All()
	out := make([]JurisdictionInfo, 0, len(codes))
	for _, code := range codes {
		out = append(out, JurisdictionInfo{
			Code:    code,
			Name:    code.Name(),
			Country: code.Country(),
			IFTA:    code.IsIFTA(),
		})
	}
	response.Success(c, out)
}
