package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/user"
)

type classroomApi struct {
	svc      *classroom.Service
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

func registerClassroomAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *classroom.Service,
	usrSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := classroomApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	cg := g.Group("/classrooms", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.POST("/enroll", api.enroll)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)
	cg.GET("/:id/posts", api.posts)
	cg.POST("/:id/posts", api.createPost)
	cg.GET("/:id/people", api.people)

	pg := g.Group("/posts", jwt)
	pg.GET("/:id", api.retrievePost)
	pg.PUT("/:id", api.updatePost)
	pg.DELETE("/:id", api.destroyPost)

	eg := g.Group("/enrollments", jwt)
	eg.DELETE("/:id", api.unenroll)
}

// trapNotFound hides both missing entities and denied mutations behind 404.
func trapNotFound(err error, msg string) error {
	if errors.Cause(err) == classroom.ErrNotFound {
		return errHttpNotFound
	}
	return errors.Wrap(err, msg)
}

// Handlers

func (api *classroomApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rooms, err := api.svc.QueryVisible(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying classrooms")
	}
	if rooms == nil {
		rooms = []classroom.Classroom{}
	}
	return ctx.JSON(http.StatusOK, rooms)
}

func (api *classroomApi) create(ctx echo.Context) error {
	var data classroom.NewClassroom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassroom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	room, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating classroom")
	}
	return ctx.JSON(http.StatusCreated, room)
}

func (api *classroomApi) retrieve(ctx echo.Context) error {
	room, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapNotFound(err, "getting classroom")
	}
	return ctx.JSON(http.StatusOK, room)
}

func (api *classroomApi) update(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	room, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return trapNotFound(err, "getting classroom")
	}

	var data classroom.UpdateClassroom
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClassroom")
	}
	if err = data.Validate(room, api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	room, err = api.svc.Update(rctx, ctxUsr, room.ID, data)
	if err != nil {
		return trapNotFound(err, "updating classroom")
	}
	return ctx.JSON(http.StatusOK, room)
}

func (api *classroomApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return trapNotFound(err, "deleting classroom")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classroomApi) enroll(ctx echo.Context) error {
	var data classroom.JoinClassroom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinClassroom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	enr, created, err := api.svc.Enroll(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return trapNotFound(err, "enrolling")
	}
	if !created {
		// already enrolled: not an error, just say so
		return ctx.JSON(http.StatusOK, InfoResponse{Info: "You are already enrolled in this class."})
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *classroomApi) unenroll(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Unenroll(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return trapNotFound(err, "unenrolling")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classroomApi) posts(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	if _, err := api.svc.GetByID(rctx, ctx.Param("id")); err != nil {
		return trapNotFound(err, "getting classroom")
	}

	posts, err := api.svc.Posts(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying posts")
	}
	if posts == nil {
		posts = []classroom.Post{}
	}
	return ctx.JSON(http.StatusOK, posts)
}

func (api *classroomApi) createPost(ctx echo.Context) error {
	var data classroom.NewPost
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPost")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	post, err := api.svc.CreatePost(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return trapNotFound(err, "creating post")
	}
	return ctx.JSON(http.StatusCreated, post)
}

func (api *classroomApi) retrievePost(ctx echo.Context) error {
	post, err := api.svc.GetPostByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapNotFound(err, "getting post")
	}
	return ctx.JSON(http.StatusOK, post)
}

func (api *classroomApi) updatePost(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	post, err := api.svc.GetPostByID(rctx, ctx.Param("id"))
	if err != nil {
		return trapNotFound(err, "getting post")
	}

	var data classroom.UpdatePost
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePost")
	}
	if err = data.Validate(post, api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	post, err = api.svc.UpdatePost(rctx, ctxUsr, post.ID, data)
	if err != nil {
		return trapNotFound(err, "updating post")
	}
	return ctx.JSON(http.StatusOK, post)
}

func (api *classroomApi) destroyPost(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.DeletePost(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return trapNotFound(err, "deleting post")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classroomApi) people(ctx echo.Context) error {
	people, err := api.svc.People(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapNotFound(err, "getting classroom people")
	}
	return ctx.JSON(http.StatusOK, people)
}
