package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest_RejectsEmptyName(t *testing.T) {
	_, err := NewRequest(RequestParams{CompanyName: "  "})
	assert.Error(t, err)
}

func TestNewRequest_RejectsTooShortName(t *testing.T) {
	_, err := NewRequest(RequestParams{CompanyName: "A"})
	assert.Error(t, err)
}

func TestNewRequest_RejectsTooLongName(t *testing.T) {
	_, err := NewRequest(RequestParams{CompanyName: strings.Repeat("a", maxCompanyNameLength+1)})
	assert.Error(t, err)
}

func TestNewRequest_AcceptsNameAtBounds(t *testing.T) {
	_, err := NewRequest(RequestParams{CompanyName: "Ab"})
	require.NoError(t, err)

	_, err = NewRequest(RequestParams{CompanyName: strings.Repeat("a", maxCompanyNameLength)})
	require.NoError(t, err)
}

func TestParseCompanySize(t *testing.T) {
	assert.Equal(t, CompanySizeStartup, ParseCompanySize("Startup"))
	assert.Equal(t, CompanySizeEnterprise, ParseCompanySize(" enterprise "))
	assert.Equal(t, CompanySizeUnknown, ParseCompanySize(""))
	assert.Equal(t, CompanySizeUnknown, ParseCompanySize("megacorp"))
}

func TestParseCompanySector(t *testing.T) {
	assert.Equal(t, SectorTechnology, ParseCompanySector("Technology"))
	assert.Equal(t, CompanySector(""), ParseCompanySector(""))
	assert.Equal(t, SectorOther, ParseCompanySector("aerospace"))
}
