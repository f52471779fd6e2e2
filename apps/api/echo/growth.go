package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/minuum/qr-prayer-check/core/growth"
)

func registerGrowthAPI(g *echo.Group) {
	gg := g.Group("/growth")
	gg.GET("/criteria", growthCriteria)
	gg.POST("/score", growthScore)
}

func growthCriteria(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, GrowthCriteriaResponse{
		Criteria: growth.GetCriteria(),
		Defaults: growth.DefaultInput(),
	})
}

func growthScore(ctx echo.Context) error {
	data := growth.DefaultInput()
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to growth.Input")
	}
	score, err := growth.Calculate(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, score)
}

type GrowthCriteriaResponse struct {
	growth.Criteria
	Defaults growth.Input `json:"defaults"`
}
