package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"paper-portal/backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

func TestFailWithErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   ErrorCode
	}{
		{apperr.Validation("page", "must not be negative"), http.StatusBadRequest, ErrBadRequest},
		{apperr.Forbidden("college_ranking", "university admin only"), http.StatusForbidden, ErrForbidden},
		{apperr.NotFound("paper", 9), http.StatusNotFound, ErrNotFound},
		{apperr.Integrity("user", 1, "user not in college"), http.StatusConflict, ErrConflict},
		{apperr.Storage("click.append", errors.New("disk full")), http.StatusInternalServerError, ErrInternal},
		{errors.New("unexpected"), http.StatusInternalServerError, ErrInternal},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		FailWithError(c, tc.err)

		if w.Code != tc.status {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.status, w.Code)
		}
		var body Response
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Success || body.Error == nil || body.Error.Code != tc.code {
			t.Fatalf("%v: unexpected body %s", tc.err, w.Body.String())
		}
	}
}

func TestFailWithErrorHidesStorageDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	FailWithError(c, apperr.Storage("click.scan", errors.New("password=hunter2")))

	var body Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Message != "internal storage error" {
		t.Fatalf("storage details leaked: %q", body.Error.Message)
	}
}
