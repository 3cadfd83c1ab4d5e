package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"nilor/internal/domain"
	"nilor/internal/service"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateUpdateNode, UpdateNodeRequest{})
	return v
}

// validateUpdateNode rejects hiding the subtitle while also setting its text
func validateUpdateNode(sl validator.StructLevel) {
	r := sl.Current().Interface().(UpdateNodeRequest)
	if r.Subtitle != nil && r.ShowSubtitle != nil && !*r.ShowSubtitle {
		sl.ReportError(r.ShowSubtitle, "show_subtitle", "ShowSubtitle", "subtitle_conflict", "")
	}
}

// CreateNodeRequest adds a node. Position is random when omitted.
type CreateNodeRequest struct {
	Kind     string           `json:"kind" validate:"required,oneof=source sink transform input output process"`
	Position *domain.Position `json:"position,omitempty"`
}

// UpdateNodeRequest changes any subset of a node's fields. ShowSubtitle
// toggles the subtitle line; Subtitle sets its text and shows it, so the two
// cannot be combined with show_subtitle false.
type UpdateNodeRequest struct {
	Title        *string          `json:"title,omitempty" validate:"omitnil,max=200"`
	Subtitle     *string          `json:"subtitle,omitempty" validate:"omitnil,max=200"`
	ShowSubtitle *bool            `json:"show_subtitle,omitempty"`
	AccentColor  *string          `json:"accent_color,omitempty" validate:"omitnil,hexcolor"`
	Position     *domain.Position `json:"position,omitempty"`
}

func (r UpdateNodeRequest) patch() service.NodePatch {
	p := service.NodePatch{
		Title:        r.Title,
		Subtitle:     r.Subtitle,
		ShowSubtitle: r.ShowSubtitle,
		Position:     r.Position,
	}
	if r.AccentColor != nil {
		c := domain.Color(*r.AccentColor)
		p.AccentColor = &c
	}
	return p
}

// AddPortRequest appends a port. An empty label gets the next numbered
// default.
type AddPortRequest struct {
	Direction string `json:"direction" validate:"required,oneof=input output"`
	Label     string `json:"label,omitempty" validate:"max=200"`
}

// UpdatePortRequest renames or recolors a port. ResetColor wins over Color.
type UpdatePortRequest struct {
	Label      *string `json:"label,omitempty" validate:"omitnil,max=200"`
	Color      *string `json:"color,omitempty" validate:"omitnil,hexcolor"`
	ResetColor bool    `json:"reset_color,omitempty"`
}

func (r UpdatePortRequest) patch() service.PortPatch {
	p := service.PortPatch{Label: r.Label, ResetColor: r.ResetColor}
	if r.Color != nil {
		c := domain.Color(*r.Color)
		p.Color = &c
	}
	return p
}

// ConnectRequest wires a source handle to a target handle, using the same
// handle ids as the graph document ("out-<port>" and "in-<port>")
type ConnectRequest struct {
	Source       string `json:"source" validate:"required"`
	SourceHandle string `json:"source_handle" validate:"required,startswith=out-"`
	Target       string `json:"target" validate:"required"`
	TargetHandle string `json:"target_handle" validate:"required,startswith=in-"`
}

func (r ConnectRequest) ports() (source, target string) {
	_, source, _ = domain.ParseHandle(r.SourceHandle)
	_, target, _ = domain.ParseHandle(r.TargetHandle)
	return source, target
}

// validateRequest runs struct validation and flattens the result into one
// errBadRequest
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("%w: %s", errBadRequest, strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param())
	case "hexcolor":
		return fmt.Sprintf("%s must be a hex color like #4A90E2", e.Field())
	case "startswith":
		return fmt.Sprintf("%s must start with %q", e.Field(), e.Param())
	case "subtitle_conflict":
		return fmt.Sprintf("%s cannot be false when subtitle is set", e.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}
