package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestErrorAttachesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-1")

	ErrorWithData(c, CodeBadRequest, "bad", gin.H{"fields": []string{"title"}})

	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	var body struct {
		StatusCode int                    `json:"status_code"`
		Msg        string                 `json:"msg"`
		Data       map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if body.StatusCode != CodeBadRequest || body.Msg != "bad" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if body.Data["request_id"] != "req-1" || body.Data["fields"] == nil {
		t.Fatalf("data should keep fields and request id: %+v", body.Data)
	}
}

func TestAttachRequestIDWrapsNonMapData(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set("request_id", "req-2")

	got, ok := attachRequestID(c, []int{1}).(gin.H)
	if !ok || got["request_id"] != "req-2" || got["data"] == nil {
		t.Fatalf("unexpected wrapped data: %#v", got)
	}
	if attachRequestID(nil, "x") != "x" {
		t.Fatalf("without request id data should pass through")
	}
}
