package browser

import (
	"fmt"
	"sync"
	"testing"

	"github.com/tabgrab/tabgrab/internal/models"
)

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		url  string
		want models.ResourceKind
	}{
		{
			name: "cdn json payload",
			url:  "https://d2h7cqmvy24vnq.cloudfront.net/27/123456/1.json",
			want: models.KindTrackData,
		},
		{
			name: "cdn json payload without numeric segment",
			url:  "https://dxyz.cloudfront.net/revisions/abcdef.json",
			want: models.KindTrackData,
		},
		{
			name: "cdn stylesheet",
			url:  "https://dxyz.cloudfront.net/assets/app.css",
			want: models.KindOther,
		},
		{
			name: "cdn image",
			url:  "https://dxyz.cloudfront.net/covers/27.png",
			want: models.KindOther,
		},
		{
			name: "json on another host",
			url:  "https://www.songsterr.com/api/meta/27.json",
			want: models.KindOther,
		},
		{
			name: "data url",
			url:  "data:application/json;base64,e30=",
			want: models.KindOther,
		},
		{
			name: "unparseable url",
			url:  "://not-a-url",
			want: models.KindOther,
		},
		{
			name: "query string does not count as json path",
			url:  "https://dxyz.cloudfront.net/track?format=.json",
			want: models.KindOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tt.url, "cloudfront.net")
			if got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestClassify_CustomHostPattern(t *testing.T) {
	t.Parallel()
	got := Classify("http://127.0.0.1:8080/0.json", "127.0.0.1")
	if got != models.KindTrackData {
		t.Errorf("Classify with custom pattern = %v, want KindTrackData", got)
	}
}

func TestCapture_DeduplicatesByURL(t *testing.T) {
	t.Parallel()
	capture := NewCapture("cloudfront.net")

	// requestWillBeSent and responseReceived both report the same URL
	capture.Observe("https://d.cloudfront.net/27/1/0.json")
	capture.Observe("https://d.cloudfront.net/27/1/0.json")
	capture.Observe("https://d.cloudfront.net/27/1/1.json")
	capture.Observe("")

	requests := capture.Requests()
	if len(requests) != 2 {
		t.Fatalf("Expected 2 captured requests, got %d", len(requests))
	}
	if requests[0].URL != "https://d.cloudfront.net/27/1/0.json" {
		t.Errorf("Unexpected first request: %s", requests[0].URL)
	}
	if requests[0].Kind != models.KindTrackData || requests[1].Kind != models.KindTrackData {
		t.Error("Expected both requests classified as track data")
	}
}

func TestCapture_PreservesObservationOrder(t *testing.T) {
	t.Parallel()
	capture := NewCapture("cloudfront.net")

	urls := []string{
		"https://www.songsterr.com/a/wsa/song-tab-s1",
		"https://d.cloudfront.net/1/2/2.json",
		"https://d.cloudfront.net/assets/app.css",
		"https://d.cloudfront.net/1/2/0.json",
	}
	for _, u := range urls {
		capture.Observe(u)
	}

	requests := capture.Requests()
	if len(requests) != len(urls) {
		t.Fatalf("Expected %d requests, got %d", len(urls), len(requests))
	}
	for i, u := range urls {
		if requests[i].URL != u {
			t.Errorf("Request %d: got %s, want %s", i, requests[i].URL, u)
		}
	}
	expectedKinds := []models.ResourceKind{
		models.KindOther, models.KindTrackData, models.KindOther, models.KindTrackData,
	}
	for i, kind := range expectedKinds {
		if requests[i].Kind != kind {
			t.Errorf("Request %d: kind = %v, want %v", i, requests[i].Kind, kind)
		}
	}
}

func TestCapture_ConcurrentObserve(t *testing.T) {
	t.Parallel()
	capture := NewCapture("cloudfront.net")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				capture.Observe(fmt.Sprintf("https://d.cloudfront.net/%d/%d.json", worker, j))
			}
		}(i)
	}
	wg.Wait()

	if got := len(capture.Requests()); got != 8*50 {
		t.Errorf("Expected %d unique requests, got %d", 8*50, got)
	}
}

func TestResourceKind_String(t *testing.T) {
	t.Parallel()
	if models.KindTrackData.String() != "track_data" {
		t.Errorf("KindTrackData.String() = %q", models.KindTrackData.String())
	}
	if models.KindOther.String() != "other" {
		t.Errorf("KindOther.String() = %q", models.KindOther.String())
	}
}
