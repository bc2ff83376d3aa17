package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/EmberTeam/ember-go-engine/core/state/markets"
	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/helpers"
)

// curvePrice previews the spot price of a market at an arbitrary supply
// point, without touching the market's actual supply.
func curvePrice(c *gin.Context) {
	market, ok := customMarket(c)
	if !ok {
		return
	}

	supplyS := c.Param("supply")
	if !helpers.IsValidBigInt(supplyS) {
		badRequest(c, "invalid supply")
		return
	}
	supply := helpers.StringToBigInt(supplyS)

	c.JSON(200, gin.H{
		"market": market.ID().String(),
		"supply": supply.String(),
		"price":  market.Curve().Price(supply).String(),
	})
}

// curveCost previews the curve cost of moving a market between two
// supply points.
func curveCost(c *gin.Context) {
	market, ok := customMarket(c)
	if !ok {
		return
	}

	fromS, toS := c.Param("from"), c.Param("to")
	if !helpers.IsValidBigInt(fromS) || !helpers.IsValidBigInt(toS) {
		badRequest(c, "invalid supply bounds")
		return
	}

	from, to := helpers.StringToBigInt(fromS), helpers.StringToBigInt(toS)
	if from.Cmp(to) == 1 {
		badRequest(c, "from is over to")
		return
	}

	c.JSON(200, gin.H{
		"market": market.ID().String(),
		"from":   from.String(),
		"to":     to.String(),
		"cost":   market.Curve().CostBetween(from, to).String(),
	})
}

func customMarket(c *gin.Context) (*markets.Model, bool) {
	id, err := strconv.ParseUint(c.Param("market"), 10, 32)
	if err != nil {
		badRequest(c, err.Error())
		return nil, false
	}

	market := ember.CurrentState().Markets().GetMarket(types.TokenID(id))
	if market == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": map[string]string{
				"message": "market not found",
			},
		})
		return nil, false
	}

	return market, true
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": map[string]string{
			"message": message,
		},
	})
}

// CustomHandlers return custom http methods
func CustomHandlers() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	r.GET("/curve_price/:market/:supply", curvePrice)
	r.GET("/curve_cost/:market/:from/:to", curveCost)
	return r
}
