package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	problemContentType = "application/problem+json"
	problemTypeBlank   = "about:blank"
)

// ProblemDetails is an RFC 7807 error body.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// NewProblem titles the problem with the standard reason phrase of status.
func NewProblem(status int, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:     problemTypeBlank,
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

func (pd *ProblemDetails) Error() string {
	return fmt.Sprintf("%d %s: %s", pd.Status, pd.Title, pd.Detail)
}

func (pd *ProblemDetails) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(pd.Status)
	json.NewEncoder(w).Encode(pd)
}

func WriteError(w http.ResponseWriter, status int, title, detail, instance string) {
	pd := NewProblem(status, detail, instance)
	if title != "" {
		pd.Title = title
	}
	pd.Write(w)
}

func WriteBadRequest(w http.ResponseWriter, detail, instance string) {
	NewProblem(http.StatusBadRequest, detail, instance).Write(w)
}

func WriteNotFound(w http.ResponseWriter, detail, instance string) {
	NewProblem(http.StatusNotFound, detail, instance).Write(w)
}

func WriteInternalServerError(w http.ResponseWriter, err error, instance string) {
	NewProblem(http.StatusInternalServerError, err.Error(), instance).Write(w)
}

func WriteBadGateway(w http.ResponseWriter, detail, instance string) {
	NewProblem(http.StatusBadGateway, detail, instance).Write(w)
}

func WriteGatewayTimeout(w http.ResponseWriter, detail, instance string) {
	NewProblem(http.StatusGatewayTimeout, "Upstream service timed out: "+detail, instance).Write(w)
}

// WriteJSON encodes v as the response body. Encoding failures surface as a 500 problem.
func WriteJSON(w http.ResponseWriter, status int, v any, instance string) {
	body, err := json.Marshal(v)
	if err != nil {
		WriteInternalServerError(w, fmt.Errorf("failed to encode response"), instance)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
