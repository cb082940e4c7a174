// Package pubchem fetches compound properties from the PubChem PUG REST API.
package pubchem

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultEndpoint is the public PUG REST base URL.
const DefaultEndpoint = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"

// Properties is a compound property lookup result.
type Properties struct {
	Found     bool    `json:"found"`
	Name      string  `json:"name"`
	IUPACName string  `json:"iupac_name,omitempty"`
	CID       int64   `json:"cid,omitempty"`
	MW        float64 `json:"mw,omitempty"`
	LogP      float64 `json:"log_p,omitempty"`
	HasLogP   bool    `json:"-"`
}

// Client performs compound property lookups by drug name.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.endpoint != ""
}

// FetchCompound looks up molecular weight, XLogP and the IUPAC name for a
// compound by name. A 404 from PubChem means the name is unknown and is
// reported as Found=false, not as an error.
func (c *Client) FetchCompound(ctx context.Context, name string) (*Properties, error) {
	if !c.Enabled() {
		return nil, nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("compound name required")
	}

	path := fmt.Sprintf("/compound/name/%s/property/MolecularWeight,XLogP,IUPACName/JSON", url.PathEscape(name))
	u, err := url.Parse(c.endpoint + path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &Properties{Found: false, Name: name}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		blob, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("pubchem status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(blob)))
	}

	// MolecularWeight arrives as a JSON string, XLogP as a number.
	var raw struct {
		PropertyTable struct {
			Properties []struct {
				CID             int64           `json:"CID"`
				MolecularWeight json.RawMessage `json:"MolecularWeight"`
				XLogP           *float64        `json:"XLogP"`
				IUPACName       string          `json:"IUPACName"`
			} `json:"Properties"`
		} `json:"PropertyTable"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	if len(raw.PropertyTable.Properties) == 0 {
		return &Properties{Found: false, Name: name}, nil
	}

	p := raw.PropertyTable.Properties[0]
	out := &Properties{
		Found:     true,
		Name:      name,
		IUPACName: p.IUPACName,
		CID:       p.CID,
		MW:        parseWeight(p.MolecularWeight),
	}
	if p.XLogP != nil {
		out.LogP = *p.XLogP
		out.HasLogP = true
	}
	return out, nil
}

func parseWeight(raw json.RawMessage) float64 {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0
	}
	s = strings.Trim(s, `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
