package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/polls"
	"github.com/trezcool/darasa/core/user"
)

type pollsApi struct {
	svc      *polls.Service
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

func registerPollsAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *polls.Service,
	usrSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := pollsApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	qg := g.Group("/questions")

	// polls are public reading material
	qg.GET("", api.query)
	qg.GET("/:id", api.retrieve)
	qg.GET("/:id/results", api.results)

	// mutations need an account
	ag := qg.Group("", jwt)
	ag.POST("", api.create)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
	ag.POST("/:id/choices", api.addChoice)

	g.POST("/choices/:id/vote", api.vote)
}

type (
	// QuestionListItem flattens choices to their texts for the index view.
	QuestionListItem struct {
		polls.Question
		Choices []string `json:"choices"`
	}

	QuestionDetail struct {
		polls.Question
		Choices []polls.Choice `json:"choices"`
	}
)

func (api *pollsApi) trapNotFound(err error, msg string) error {
	if errors.Cause(err) == polls.ErrNotFound {
		return errHttpNotFound
	}
	return errors.Wrap(err, msg)
}

// Handlers

func (api *pollsApi) query(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	qs, err := api.svc.Query(rctx)
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}

	items := make([]QuestionListItem, 0, len(qs))
	for _, q := range qs {
		choices, err := api.svc.Choices(rctx, q.ID)
		if err != nil {
			return errors.Wrap(err, "querying choices")
		}
		texts := make([]string, 0, len(choices))
		for _, c := range choices {
			texts = append(texts, c.ChoiceText)
		}
		items = append(items, QuestionListItem{Question: q, Choices: texts})
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *pollsApi) retrieve(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	q, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return api.trapNotFound(err, "getting question")
	}
	choices, err := api.svc.Choices(rctx, q.ID)
	if err != nil {
		return errors.Wrap(err, "querying choices")
	}
	if choices == nil {
		choices = []polls.Choice{}
	}
	return ctx.JSON(http.StatusOK, QuestionDetail{Question: q, Choices: choices})
}

// results mirrors retrieve; it exists so clients can poll vote tallies
// without caring about the question payload shape.
func (api *pollsApi) results(ctx echo.Context) error {
	return api.retrieve(ctx)
}

func (api *pollsApi) create(ctx echo.Context) error {
	var data polls.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	q, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *pollsApi) update(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	q, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return api.trapNotFound(err, "getting question")
	}

	var data polls.UpdateQuestion
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuestion")
	}
	if err = data.Validate(q, api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	q, err = api.svc.Update(rctx, ctxUsr, q.ID, data)
	if err != nil {
		return api.trapNotFound(err, "updating question")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *pollsApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return api.trapNotFound(err, "deleting question")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *pollsApi) addChoice(ctx echo.Context) error {
	var data polls.NewChoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChoice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	c, err := api.svc.AddChoice(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return api.trapNotFound(err, "adding choice")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *pollsApi) vote(ctx echo.Context) error {
	c, err := api.svc.Vote(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return api.trapNotFound(err, "voting")
	}
	return ctx.JSON(http.StatusOK, c)
}
