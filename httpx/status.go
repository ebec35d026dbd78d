package httpx

import "net/http"

// Status codes the service answers with.
const (
	StatusOK                 = http.StatusOK
	StatusCreated            = http.StatusCreated
	StatusBadRequest         = http.StatusBadRequest
	StatusUnauthorized       = http.StatusUnauthorized // always sent without a body
	StatusNotFound           = http.StatusNotFound
	StatusConflict           = http.StatusConflict
	StatusInternalError      = http.StatusInternalServerError
	StatusServiceUnavailable = http.StatusServiceUnavailable // storage or cache outage
	StatusGatewayTimeout     = http.StatusGatewayTimeout
)
