package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface lists the operations of openapi.yaml, one method per operationId.
type ServerInterface interface {
	ListTemplates(w http.ResponseWriter, r *http.Request)
	CompileTemplate(w http.ResponseWriter, r *http.Request)
	Generate(w http.ResponseWriter, r *http.Request, session string)
	Reroll(w http.ResponseWriter, r *http.Request, session string, entry string)
	Revisit(w http.ResponseWriter, r *http.Request, session string, entry string)
	Override(w http.ResponseWriter, r *http.Request, session string, entry string)
	Fragments(w http.ResponseWriter, r *http.Request, session string, entry string)
	History(w http.ResponseWriter, r *http.Request, session string, params HistoryParams)
	ClearSession(w http.ResponseWriter, r *http.Request, session string)
	SubscribeEvents(w http.ResponseWriter, r *http.Request, params SubscribeEventsParams)
}

// HistoryParams are the query parameters of the history operation.
type HistoryParams struct {
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// SubscribeEventsParams are the query parameters of the events operation.
type SubscribeEventsParams struct {
	SessionId *string `form:"session_id,omitempty" json:"session_id,omitempty"`
}

// ServerInterfaceWrapper binds path and query parameters before dispatching.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamFormatError reports a parameter that could not be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

func (siw *ServerInterfaceWrapper) pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &value,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: name, Err: err})
		return "", false
	}
	return value, true
}

func (siw *ServerInterfaceWrapper) sessionEntry(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	session, ok := siw.pathParam(w, r, "session")
	if !ok {
		return "", "", false
	}
	entry, ok := siw.pathParam(w, r, "entry")
	return session, entry, ok
}

func (siw *ServerInterfaceWrapper) ListTemplates(w http.ResponseWriter, r *http.Request) {
	siw.Handler.ListTemplates(w, r)
}

func (siw *ServerInterfaceWrapper) CompileTemplate(w http.ResponseWriter, r *http.Request) {
	siw.Handler.CompileTemplate(w, r)
}

func (siw *ServerInterfaceWrapper) Generate(w http.ResponseWriter, r *http.Request) {
	if session, ok := siw.pathParam(w, r, "session"); ok {
		siw.Handler.Generate(w, r, session)
	}
}

func (siw *ServerInterfaceWrapper) Reroll(w http.ResponseWriter, r *http.Request) {
	if session, entry, ok := siw.sessionEntry(w, r); ok {
		siw.Handler.Reroll(w, r, session, entry)
	}
}

func (siw *ServerInterfaceWrapper) Revisit(w http.ResponseWriter, r *http.Request) {
	if session, entry, ok := siw.sessionEntry(w, r); ok {
		siw.Handler.Revisit(w, r, session, entry)
	}
}

func (siw *ServerInterfaceWrapper) Override(w http.ResponseWriter, r *http.Request) {
	if session, entry, ok := siw.sessionEntry(w, r); ok {
		siw.Handler.Override(w, r, session, entry)
	}
}

func (siw *ServerInterfaceWrapper) Fragments(w http.ResponseWriter, r *http.Request) {
	if session, entry, ok := siw.sessionEntry(w, r); ok {
		siw.Handler.Fragments(w, r, session, entry)
	}
}

func (siw *ServerInterfaceWrapper) History(w http.ResponseWriter, r *http.Request) {
	session, ok := siw.pathParam(w, r, "session")
	if !ok {
		return
	}
	var params HistoryParams
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "limit", Err: err})
		return
	}
	siw.Handler.History(w, r, session, params)
}

func (siw *ServerInterfaceWrapper) ClearSession(w http.ResponseWriter, r *http.Request) {
	if session, ok := siw.pathParam(w, r, "session"); ok {
		siw.Handler.ClearSession(w, r, session)
	}
}

func (siw *ServerInterfaceWrapper) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	var params SubscribeEventsParams
	if err := runtime.BindQueryParameter("form", true, false, "session_id", r.URL.Query(), &params.SessionId); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "session_id", Err: err})
		return
	}
	siw.Handler.SubscribeEvents(w, r, params)
}

// HandlerFromMux mounts every operation of si on r under BasePath.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	wrapper := ServerInterfaceWrapper{
		Handler: si,
		ErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
			writeJSON(w, http.StatusBadRequest, Error{Error: err.Error()})
		},
	}

	r.Route(BasePath(), func(r chi.Router) {
		r.Get("/templates", wrapper.ListTemplates)
		r.Post("/compile", wrapper.CompileTemplate)
		r.Post("/sessions/{session}/generate", wrapper.Generate)
		r.Post("/sessions/{session}/entries/{entry}/reroll", wrapper.Reroll)
		r.Post("/sessions/{session}/entries/{entry}/revisit", wrapper.Revisit)
		r.Post("/sessions/{session}/entries/{entry}/override", wrapper.Override)
		r.Get("/sessions/{session}/entries/{entry}/fragments", wrapper.Fragments)
		r.Get("/sessions/{session}/history", wrapper.History)
		r.Delete("/sessions/{session}", wrapper.ClearSession)
		r.Get("/events", wrapper.SubscribeEvents)
	})
	return r
}
