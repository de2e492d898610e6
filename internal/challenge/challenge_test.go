package challenge

import (
	"net/http"
	"testing"
)

func TestDetectCloudflare(t *testing.T) {
	p := Page{StatusCode: 200, Headers: http.Header{"Server": {"nginx"}}, Body: []byte("OK")}
	if detected, _ := detectCloudflare(p); detected {
		t.Errorf("expected not detected")
	}

	p = Page{StatusCode: 403, Headers: http.Header{"Server": {"cloudflare"}}, Body: []byte("Access Denied")}
	if detected, src := detectCloudflare(p); !detected || src != "Cloudflare" {
		t.Errorf("expected Cloudflare detection by header")
	}

	p = Page{StatusCode: 503, Headers: http.Header{}, Body: []byte("<html>... cf-turnstile ...</html>")}
	if detected, src := detectCloudflare(p); !detected || src != "Cloudflare" {
		t.Errorf("expected Cloudflare detection by body")
	}
}

func TestDetectAkamai(t *testing.T) {
	p := Page{StatusCode: 403, Headers: http.Header{"Server": {"AkamaiGHost"}}}
	if detected, src := detectAkamai(p); !detected || src != "Akamai" {
		t.Errorf("expected Akamai detection by header")
	}

	p = Page{StatusCode: 403, Headers: http.Header{}, Body: []byte("Access Denied... Reference #123.456")}
	if detected, src := detectAkamai(p); !detected || src != "Akamai" {
		t.Errorf("expected Akamai detection by body")
	}
}

func TestDetectDataDome(t *testing.T) {
	p := Page{StatusCode: 403, Headers: http.Header{"X-Datadome": {"1"}}}
	if detected, src := detectDataDome(p); !detected || src != "DataDome" {
		t.Errorf("expected DataDome detection by header")
	}

	p = Page{StatusCode: 403, Body: []byte("script src='https://geo.captcha-delivery.com/...'")}
	if detected, src := detectDataDome(p); !detected || src != "DataDome" {
		t.Errorf("expected DataDome detection by body")
	}
}

func TestDetectPerimeterX(t *testing.T) {
	p := Page{StatusCode: 403, Body: []byte(`<div id="px-captcha"></div>`)}
	if detected, src := detectPerimeterX(p); !detected || src != "PerimeterX" {
		t.Errorf("expected PerimeterX detection by body")
	}
}

func TestDetectInterstitial(t *testing.T) {
	tests := []struct {
		name   string
		page   Page
		source string
	}{
		{"turnstile served ok", Page{StatusCode: 200, Body: []byte(`<html><div class="cf-turnstile" data-sitekey="x"></div></html>`)}, "Cloudflare"},
		{"perimeterx served ok", Page{StatusCode: 200, Body: []byte(`<html><div id="px-captcha"></div></html>`)}, "PerimeterX"},
		{"datadome served ok", Page{StatusCode: 200, Body: []byte(`<script src="https://geo.captcha-delivery.com/captcha/"></script>`)}, "DataDome"},
		{"plain page", Page{StatusCode: 200, Body: []byte(`<html><a href="/biz_redir?url=x">site</a></html>`)}, ""},
		{"json mentioning a marker", Page{StatusCode: 200, Body: []byte(`{"reviews": [{"comment": {"text": "px-captcha everywhere"}}]}`)}, ""},
		{"not found", Page{StatusCode: 404, Body: []byte(`<div class="cf-turnstile"></div>`)}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detected, src := detectInterstitial(tt.page)
			if detected != (tt.source != "") || src != tt.source {
				t.Errorf("got (%v, %q), want source %q", detected, src, tt.source)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	ok := Page{StatusCode: 200, Body: []byte(`{"reviews": []}`)}
	if src, detected := Detect(ok, DefaultDetectors()); detected {
		t.Errorf("expected clean page, got %s", src)
	}

	blocked := Page{StatusCode: 403, Headers: http.Header{"Server": {"cloudflare"}}}
	src, detected := Detect(blocked, DefaultDetectors())
	if !detected || src != "Cloudflare" {
		t.Errorf("expected Cloudflare, got %q %v", src, detected)
	}

	interstitial := Page{StatusCode: 200, Body: []byte(`<html><div class="cf-turnstile"></div></html>`)}
	if src, detected := Detect(interstitial, DefaultDetectors()); !detected || src != "Cloudflare" {
		t.Errorf("expected interstitial served with 200 to be detected, got %q %v", src, detected)
	}

	err := &Error{Source: src, StatusCode: 403}
	if err.Error() != "challenged by Cloudflare (status 403)" {
		t.Errorf("unexpected error text %q", err.Error())
	}
}
