package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pageminer/models"
)

func newMapRouter(fp FetcherProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/map", PostMap(fp, testCrawlerCfg(), time.Second))
	return r
}

func TestPostMap_DiscoversURLs(t *testing.T) {
	r := newMapRouter(threePageSite())

	w := postJSON(t, r, "/api/v1/map", `{"url":"http://site.test/"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp models.MapResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal map response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("success = false: %+v", resp.Error)
	}
	if resp.Total != 3 || len(resp.URLs) != 3 {
		t.Fatalf("total = %d, urls = %v, want 3 discovered", resp.Total, resp.URLs)
	}

	want := map[string]bool{
		"http://site.test/":  true,
		"http://site.test/a": true,
		"http://site.test/b": true,
	}
	for _, u := range resp.URLs {
		if !want[u] {
			t.Errorf("unexpected discovered URL %q", u)
		}
	}
}

func TestPostMap_ExternalLinksWhenUnscoped(t *testing.T) {
	site := &stubSite{pages: map[string]string{
		"http://site.test/": `<html><body><a href="http://other.test/x">out</a></body></html>`,
	}}
	r := newMapRouter(site)

	w := postJSON(t, r, "/api/v1/map", `{"url":"http://site.test/","same_domain_only":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp models.MapResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal map response: %v", err)
	}
	found := false
	for _, u := range resp.URLs {
		if u == "http://other.test/x" {
			found = true
		}
	}
	if !found {
		t.Errorf("external URL not discovered, got %v", resp.URLs)
	}
}

func TestPostMap_ScopedToSeedHostByDefault(t *testing.T) {
	site := &stubSite{pages: map[string]string{
		"http://site.test/": `<html><body><a href="http://other.test/x">out</a><a href="/in">in</a></body></html>`,
	}}
	r := newMapRouter(site)

	w := postJSON(t, r, "/api/v1/map", `{"url":"http://site.test/"}`)
	var resp models.MapResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal map response: %v", err)
	}
	for _, u := range resp.URLs {
		if u == "http://other.test/x" {
			t.Errorf("external URL discovered despite default same-domain scope: %v", resp.URLs)
		}
	}
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2 (seed + /in)", resp.Total)
	}
}

func TestPostMap_InvalidRequest(t *testing.T) {
	r := newMapRouter(threePageSite())

	w := postJSON(t, r, "/api/v1/map", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}
