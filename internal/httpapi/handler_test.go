package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/atelierhq/atelier/internal/llm"
	"github.com/atelierhq/atelier/internal/llm/provider"
	"github.com/atelierhq/atelier/internal/notify"
	"github.com/atelierhq/atelier/internal/studio"
	"github.com/atelierhq/atelier/internal/submission"
	"github.com/atelierhq/atelier/internal/upload"
	"github.com/atelierhq/atelier/pkg/session"
)

const brandFixture = "```json\n" + `[
  {"name":"PawPath","vibe":"friendly","colors":{"primary":"#2D6A4F","secondary":"#95D5B2","accent":"#FF9F1C","background":"#FFFFFF","text":"#1B1B1B"},"font":{"heading":"Poppins","body":"Inter"},"domains":["pawpath.app"]},
  {"name":"Strollr","vibe":"minimal","colors":{"primary":"#3A0CA3","secondary":"#B5179E","accent":"#F72585","background":"#FAFAFA","text":"#14141F"},"font":{"heading":"Space Grotesk","body":"Work Sans"},"domains":["strollr.co"]},
  {"name":"Waggle","vibe":"playful","colors":{"primary":"#E07A5F","secondary":"#F2CC8F","accent":"#81B29A","background":"#FFF8F0","text":"#3D405B"},"font":{"heading":"Fredoka","body":"Nunito"},"domains":["waggle.dog"]}
]` + "\n```"

func newTestHandler(t *testing.T, mock *provider.MockProvider) *Handler {
	t.Helper()
	resolve := func() (*llm.Gateway, error) {
		return llm.NewGateway(mock, "test-model", 0.7), nil
	}
	return buildHandler(t, resolve)
}

func newUnconfiguredHandler(t *testing.T) *Handler {
	t.Helper()
	resolve := func() (*llm.Gateway, error) {
		return nil, llm.ErrNotConfigured
	}
	return buildHandler(t, resolve)
}

func buildHandler(t *testing.T, resolve studio.GatewayResolver) *Handler {
	t.Helper()
	studioSvc := studio.NewService(session.NewMemoryStore(), session.NewMemoryStore(), resolve)

	subStore, err := submission.NewStore(filepath.Join(t.TempDir(), "submissions.jsonl"))
	if err != nil {
		t.Fatalf("submission store: %v", err)
	}
	uploadStore, err := upload.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("upload store: %v", err)
	}
	t.Cleanup(func() {
		_ = subStore.Close()
		_ = uploadStore.Close()
	})

	return NewHandler(studioSvc, submission.NewService(subStore, notify.NewLogNotifier()), uploadStore)
}

func postJSON(t *testing.T, h echo.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestGenerateBrandReturnsOptions(t *testing.T) {
	mock := provider.NewMockProvider("mock").WithResponse(brandFixture)
	h := newTestHandler(t, mock)

	rec := postJSON(t, h.GenerateBrand, "/api/brand", `{"description":"dog walking app","features":["booking"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Options []studio.BrandOption `json:"options"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(resp.Options))
	}
}

func TestGenerateBrandProseIs200WithEmptyOptions(t *testing.T) {
	mock := provider.NewMockProvider("mock").WithResponse("sorry, no ideas today")
	h := newTestHandler(t, mock)

	rec := postJSON(t, h.GenerateBrand, "/api/brand", `{"description":"dog walking app"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if string(resp["options"]) != "[]" {
		t.Errorf("expected empty options array, got %s", resp["options"])
	}
	if _, ok := resp["error"]; ok {
		t.Error("parse failure must not produce an error field")
	}
}

func TestDecomposeEmptyFeaturesIs400(t *testing.T) {
	mock := provider.NewMockProvider("mock")
	h := newTestHandler(t, mock)

	rec := postJSON(t, h.DecomposeFeatures, "/api/decompose", `{"features":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(mock.CompletionCalls) != 0 {
		t.Errorf("expected zero upstream calls, got %d", len(mock.CompletionCalls))
	}
}

func TestMissingCredentialIs500(t *testing.T) {
	h := newUnconfiguredHandler(t)

	cases := []struct {
		name    string
		handler echo.HandlerFunc
		target  string
		body    string
	}{
		{"assistant", h.AssistantChat, "/api/assistant/chat", `{"slug":"s","message":"hi"}`},
		{"brand", h.GenerateBrand, "/api/brand", `{"description":"d"}`},
		{"decompose", h.DecomposeFeatures, "/api/decompose", `{"features":["f"]}`},
		{"spec", h.SynthesizeSpec, "/api/spec", `{"description":"d","features":["f"]}`},
		{"revise", h.Revise, "/api/revise", `{"message":"m"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, tc.handler, tc.target, tc.body)
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), "not configured") {
				t.Errorf("expected not-configured error, got %s", rec.Body.String())
			}
		})
	}
}

func TestUpstreamFailureIs502WithoutDetails(t *testing.T) {
	upstream := provider.NewProviderError("mock", provider.ErrorCodeRateLimit, "quota exhausted for org-secret", nil)
	mock := provider.NewMockProvider("mock").WithError(upstream)
	h := newTestHandler(t, mock)

	rec := postJSON(t, h.GenerateBrand, "/api/brand", `{"description":"d"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "org-secret") {
		t.Error("upstream error details must not reach the caller")
	}
}

func TestAssistantChatMissingFieldsIs400(t *testing.T) {
	mock := provider.NewMockProvider("mock")
	h := newTestHandler(t, mock)

	rec := postJSON(t, h.AssistantChat, "/api/assistant/chat", `{"slug":"s"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "message") {
		t.Errorf("error should name the missing field, got %s", rec.Body.String())
	}
}

func TestChatRoundTrip(t *testing.T) {
	mock := provider.NewMockProvider("mock")
	h := newTestHandler(t, mock)
	e := echo.New()

	rec := postJSON(t, h.PostChatMessage, "/api/chat", `{"slug":"proj-1","message":"hello?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chat?slug=proj-1", nil)
	getRec := httptest.NewRecorder()
	if err := h.GetChatHistory(e.NewContext(req, getRec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var entries []chatEntry
	if err := json.Unmarshal(getRec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(entries) != 1 || entries[0].Text != "hello?" || entries[0].From != "user" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestChatHistoryUnknownSlugIsEmptyList(t *testing.T) {
	mock := provider.NewMockProvider("mock")
	h := newTestHandler(t, mock)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/chat?slug=never-seen", nil)
	rec := httptest.NewRecorder()
	if err := h.GetChatHistory(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestReviseProseFallback(t *testing.T) {
	mock := provider.NewMockProvider("mock").WithResponse("Which section should change?")
	h := newTestHandler(t, mock)

	rec := postJSON(t, h.Revise, "/api/revise", `{"message":"change it","history":[{"role":"user","content":"earlier"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var reply studio.RevisionReply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if reply.Message != "Which section should change?" || reply.Applying {
		t.Errorf("unexpected reply: %+v", reply)
	}
}

func TestSubmissionRoundTrip(t *testing.T) {
	mock := provider.NewMockProvider("mock")
	h := newTestHandler(t, mock)
	e := echo.New()

	rec := postJSON(t, h.CreateSubmission, "/api/submissions", `{"slug":"proj-1","steps":{"brand":"PawPath"},"notes":"asap"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !created.Success || created.ID == "" {
		t.Fatalf("unexpected response: %+v", created)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/submissions", nil)
	listRec := httptest.NewRecorder()
	if err := h.ListSubmissions(e.NewContext(req, listRec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var subs []submission.Submission
	if err := json.Unmarshal(listRec.Body.Bytes(), &subs); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(subs) != 1 || subs[0].ID != created.ID {
		t.Errorf("unexpected submissions: %+v", subs)
	}
}

func TestSubmissionMissingSlugIs400(t *testing.T) {
	mock := provider.NewMockProvider("mock")
	h := newTestHandler(t, mock)

	rec := postJSON(t, h.CreateSubmission, "/api/submissions", `{"notes":"no slug"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUploadRoundTrip(t *testing.T) {
	mock := provider.NewMockProvider("mock")
	h := newTestHandler(t, mock)
	e := echo.New()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("slug", "proj-1"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.WriteField("stepLabel", "logo"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part := make(textproto.MIMEHeader)
	part.Set("Content-Disposition", `form-data; name="file"; filename="logo.png"`)
	part.Set("Content-Type", "image/png")
	fw, err := mw.CreatePart(part)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("png bytes")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	if err := h.CreateUpload(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success  bool   `json:"success"`
		FileName string `json:"fileName"`
		Size     int64  `json:"size"`
		StoredAs string `json:"storedAs"`
		Type     string `json:"type"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.FileName != "logo.png" || resp.StoredAs == "logo.png" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Type != "image/png" {
		t.Errorf("unexpected content type: %q", resp.Type)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/uploads?slug=proj-1", nil)
	listRec := httptest.NewRecorder()
	if err := h.ListUploads(e.NewContext(listReq, listRec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var recs []upload.Record
	if err := json.Unmarshal(listRec.Body.Bytes(), &recs); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(recs) != 1 || recs[0].StoredAs != resp.StoredAs {
		t.Errorf("unexpected records: %+v", recs)
	}
	if recs[0].Type != "image/png" {
		t.Errorf("content type lost in listing: %q", recs[0].Type)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(RateLimitMiddleware(1, 2))
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.1.2.3:5555"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("burst requests should pass, got %v", codes)
	}
	limited := false
	for _, code := range codes[2:] {
		if code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Errorf("expected a 429 after the burst, got %v", codes)
	}
}
