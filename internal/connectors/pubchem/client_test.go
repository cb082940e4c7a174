package pubchem

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchCompoundParsesProperties(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/compound/name/omeprazole/property/MolecularWeight,XLogP,IUPACName/JSON" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"PropertyTable":{"Properties":[{"CID":4594,"MolecularWeight":"345.4","XLogP":2.2,"IUPACName":"omeprazole-iupac"}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	props, err := c.FetchCompound(context.Background(), "omeprazole")
	if err != nil {
		t.Fatalf("FetchCompound: %v", err)
	}
	if !props.Found {
		t.Fatalf("expected found=true")
	}
	if props.MW != 345.4 {
		t.Fatalf("mw = %v, want 345.4", props.MW)
	}
	if !props.HasLogP || props.LogP != 2.2 {
		t.Fatalf("logp = %v (has=%v), want 2.2", props.LogP, props.HasLogP)
	}
	if props.IUPACName != "omeprazole-iupac" {
		t.Fatalf("iupac = %q", props.IUPACName)
	}
	if props.CID != 4594 {
		t.Fatalf("cid = %d", props.CID)
	}
}

func TestFetchCompoundNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"Fault":{"Code":"PUGREST.NotFound"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	props, err := NewClient(srv.URL, 2*time.Second).FetchCompound(context.Background(), "no-such-drug")
	if err != nil {
		t.Fatalf("FetchCompound: %v", err)
	}
	if props.Found {
		t.Fatalf("expected found=false")
	}
}

func TestFetchCompoundServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, 2*time.Second).FetchCompound(context.Background(), "caffeine"); err == nil {
		t.Fatalf("expected error on 500")
	}
}

func TestFetchCompoundMissingXLogP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"PropertyTable":{"Properties":[{"CID":1,"MolecularWeight":"100.0","IUPACName":"x"}]}}`))
	}))
	defer srv.Close()

	props, err := NewClient(srv.URL, 2*time.Second).FetchCompound(context.Background(), "x")
	if err != nil {
		t.Fatalf("FetchCompound: %v", err)
	}
	if props.HasLogP {
		t.Fatalf("expected HasLogP=false when XLogP is absent")
	}
}

func TestDisabledClient(t *testing.T) {
	c := NewClient("", time.Second)
	if c.Enabled() {
		t.Fatalf("empty endpoint must be disabled")
	}
	props, err := c.FetchCompound(context.Background(), "caffeine")
	if err != nil || props != nil {
		t.Fatalf("disabled client must return nil, nil; got %v, %v", props, err)
	}
}

func TestParseWeight(t *testing.T) {
	if got := parseWeight([]byte(`"345.4"`)); got != 345.4 {
		t.Fatalf("quoted string: %v", got)
	}
	if got := parseWeight([]byte(`345.4`)); got != 345.4 {
		t.Fatalf("bare number: %v", got)
	}
	if got := parseWeight([]byte(`null`)); got != 0 {
		t.Fatalf("null: %v", got)
	}
	if got := parseWeight(nil); got != 0 {
		t.Fatalf("empty: %v", got)
	}
}
