package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		responses  []tokenResponse
		wantStatus int
		wantBody   string
	}{
		{
			name:       "successful exchange",
			target:     "/callback?code=good-code",
			responses:  []tokenResponse{grantResponse("access-1", "refresh-1", 3600, "moderation:read")},
			wantStatus: http.StatusOK,
			wantBody:   "Successfully authenticated! \nYou can close this tab now!",
		},
		{
			name:       "rejected exchange",
			target:     "/callback?code=bad-code",
			responses:  []tokenResponse{{status: http.StatusBadRequest, body: `{"error":"invalid_grant"}`}},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Failed to authenticate, please try again",
		},
		{
			name:       "missing code",
			target:     "/callback?error=access_denied",
			wantStatus: http.StatusBadRequest,
			wantBody:   "Invalid code, please try again",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newManagerFixture(t)
			for _, resp := range tt.responses {
				fx.endpoint.push(resp)
			}
			handler := NewCallbackHandler(fx.manager)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body, _ := io.ReadAll(rec.Result().Body)
			if string(body) != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}
