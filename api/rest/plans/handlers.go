package plans

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nxtgenia/miniaturia/miniaturia/catalog"
)

const currency = "eur"

// ListHandler godoc
// @Summary List plans and credit packs
// @Tags plans
// @Produce json
// @Success 200 {object} Response
// @Router /api/v1/plans [get]
func ListHandler(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Plans: toItems(catalog.Plans()),
		Packs: toItems(catalog.Packs()),
	})
}

func toItems(entries []catalog.Entry) []Item {
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, Item{
			Key:        e.Key,
			Name:       e.Name,
			Price:      e.DisplayPrice(),
			PriceCents: e.PriceCents,
			Currency:   currency,
			Credits:    e.Credits,
			Interval:   e.Interval,
		})
	}
	return items
}
