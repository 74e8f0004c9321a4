package echoapi

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

type pagesApi struct {
	conf     *core.Config
	mailSvc  core.EmailService
	validate *validator.Validate
}

func registerPagesAPI(g *echo.Group, conf *core.Config, mailSvc core.EmailService, validate *validator.Validate) {
	api := pagesApi{
		conf:     conf,
		mailSvc:  mailSvc,
		validate: validate,
	}

	g.POST("/contact", api.contact)
	g.POST("/feedback", api.feedback)
}

type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"omitempty,email"`
	Message string `json:"message" validate:"required,max=600"`
}

func (cr *ContactRequest) Validate(validate *validator.Validate) error {
	cr.Name = core.CleanString(cr.Name)
	cr.Email = core.CleanString(cr.Email, true /* lower */)
	cr.Message = core.CleanString(cr.Message)
	return validate.Struct(cr)
}

func (api *pagesApi) sendToContact(ctx echo.Context, subject string) error {
	var data ContactRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ContactRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	api.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{api.conf.ContactEmail},
		Subject: subject,
		BodyStr: fmt.Sprintf("From: %s <%s>\n\n%s", data.Name, data.Email, data.Message),
	})
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Thank you! Your message has been sent."})
}

func (api *pagesApi) contact(ctx echo.Context) error {
	return api.sendToContact(ctx, "Contact message")
}

func (api *pagesApi) feedback(ctx echo.Context) error {
	return api.sendToContact(ctx, "Feedback")
}
