// Package handler adapts API Gateway proxy events to the service's HTTP
// router so the same routes run behind Lambda and a plain HTTP server.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
)

type Handler struct {
	adapter *httpadapter.HandlerAdapter
}

func NewHandler(router http.Handler) (*Handler, error) {
	if router == nil {
		return nil, errors.New("handler: router must not be nil")
	}
	return &Handler{adapter: httpadapter.New(router)}, nil
}

// Handle serves one proxy event. The router always writes a status, so an
// adapter error means the event itself was malformed (a bad base64 body, for
// one). Those get a 400 response rather than an invocation error so API
// Gateway does not retry them.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp, err := h.adapter.ProxyWithContext(ctx, event)
	if err != nil {
		slog.WarnContext(ctx, "invalid proxy event", "path", event.Path, "err", err)
		return events.APIGatewayProxyResponse{
			StatusCode:        http.StatusBadRequest,
			MultiValueHeaders: map[string][]string{"Content-Type": {"application/json"}},
			Body:              `{"error":"invalid_request","code":"INVALID_INPUT"}`,
		}, nil
	}
	return resp, nil
}
