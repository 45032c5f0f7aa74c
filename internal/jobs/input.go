package jobs

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Input is the decoded crawl request carried in a job record's input_data.
// The collection name arrives under the query_engine_name key because the
// downstream pipeline names a query engine after each collection.
type Input struct {
	URL            string
	CollectionName string
	DepthLimit     int
}

// depthValue accepts a JSON number or a numeric JSON string. Job creators in
// other runtimes have emitted both encodings for depth_limit.
type depthValue int

func (d *depthValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("depth_limit %q is not an integer", s)
		}
		*d = depthValue(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("depth_limit must be an integer: %w", err)
	}
	*d = depthValue(n)
	return nil
}

type rawInput struct {
	URL            string      `json:"url"`
	CollectionName string      `json:"query_engine_name"`
	DepthLimit     *depthValue `json:"depth_limit"`
}

// ParseInput decodes and validates the input_data payload of a job record.
// Every failure is fatal for the run and carries a distinct message so the
// job record tells the operator exactly which field was wrong.
func ParseInput(raw string) (Input, error) {
	if strings.TrimSpace(raw) == "" {
		return Input{}, fmt.Errorf("job input_data is empty")
	}

	var in rawInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return Input{}, fmt.Errorf("decode job input: %w", err)
	}

	if strings.TrimSpace(in.URL) == "" {
		return Input{}, fmt.Errorf("job input is missing url")
	}
	if err := validateStartURL(in.URL); err != nil {
		return Input{}, err
	}
	if strings.TrimSpace(in.CollectionName) == "" {
		return Input{}, fmt.Errorf("job input is missing query_engine_name")
	}
	if in.DepthLimit == nil {
		return Input{}, fmt.Errorf("job input is missing depth_limit")
	}
	if *in.DepthLimit < 0 {
		return Input{}, fmt.Errorf("depth_limit must be >= 0, got %d", int(*in.DepthLimit))
	}

	return Input{
		URL:            in.URL,
		CollectionName: in.CollectionName,
		DepthLimit:     int(*in.DepthLimit),
	}, nil
}

// validateStartURL rejects malformed or non-absolute start URLs before any
// network activity happens.
func validateStartURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("job input url %q is malformed: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("job input url %q must use http or https", raw)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("job input url %q has no host", raw)
	}
	return nil
}
