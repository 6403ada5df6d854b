package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omicsoracle/omicsoracle/internal/model"
)

func TestUnpaywallHonorsNotOpenAccess(t *testing.T) {
	resp := unpaywallResponse{IsOA: false, OALocations: []unpaywallLocation{
		{URLForPDF: "https://example.com/x.pdf"},
	}}
	assert.Nil(t, candidatesFromUnpaywall(resp))
}

func TestUnpaywallPrefersBestLocation(t *testing.T) {
	resp := unpaywallResponse{
		IsOA: true,
		BestOALocation: &unpaywallLocation{URLForPDF: "https://best.example.com/x.pdf", HostType: "publisher"},
		OALocations: []unpaywallLocation{
			{URLForPDF: "https://other.example.com/y.pdf", HostType: "repository"},
		},
	}
	out := candidatesFromUnpaywall(resp)
	assert.Len(t, out, 2)
	assert.Equal(t, "https://best.example.com/x.pdf", out[0].URL)
	assert.Equal(t, 0, out[0].Priority)
	assert.Equal(t, model.URLTypePDFDirect, out[0].URLType)
}

func TestUnpaywallDedupsLocations(t *testing.T) {
	resp := unpaywallResponse{
		IsOA: true,
		BestOALocation: &unpaywallLocation{URLForPDF: "https://same.example.com/x.pdf"},
		OALocations: []unpaywallLocation{
			{URLForPDF: "https://same.example.com/x.pdf"},
		},
	}
	out := candidatesFromUnpaywall(resp)
	assert.Len(t, out, 1)
}
