package cpfl

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// HARReport lists the API endpoints and auth-relevant headers found in a
// browser HAR capture. It helps users assemble the per-unit payload and
// extra headers during onboarding.
type HARReport struct {
	Endpoints []string
	Headers   []string
}

type harFile struct {
	Log struct {
		Entries []struct {
			Request struct {
				URL     string `json:"url"`
				Headers []struct {
					Name  string `json:"name"`
					Value string `json:"value"`
				} `json:"headers"`
			} `json:"request"`
		} `json:"entries"`
	} `json:"log"`
}

// InspectHAR scans a HAR export for requests against the provider API.
func InspectHAR(path string) (*HARReport, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading HAR: %w", err)
	}
	var har harFile
	if err := json.Unmarshal(raw, &har); err != nil {
		return nil, fmt.Errorf("invalid HAR: %w", err)
	}

	endpoints := map[string]struct{}{}
	headers := map[string]struct{}{}
	for _, entry := range har.Log.Entries {
		request := entry.Request
		if !strings.Contains(request.URL, "agencia-webapi") {
			continue
		}
		endpoints[request.URL] = struct{}{}
		for _, header := range request.Headers {
			name := strings.ToLower(header.Name)
			if strings.HasPrefix(name, "x-") || name == "authorization" || name == "clientid" {
				headers[name+": "+header.Value] = struct{}{}
			}
		}
	}

	report := &HARReport{}
	for endpoint := range endpoints {
		report.Endpoints = append(report.Endpoints, endpoint)
	}
	for header := range headers {
		report.Headers = append(report.Headers, header)
	}
	sort.Strings(report.Endpoints)
	sort.Strings(report.Headers)
	return report, nil
}
