package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLead_NeedsSourceURL(t *testing.T) {
	var l Lead
	assert.True(t, l.NeedsSourceURL())

	empty := ""
	l.SourceURL = &empty
	assert.True(t, l.NeedsSourceURL())

	u := "https://sam.gov/opp/123"
	l.SourceURL = &u
	assert.False(t, l.NeedsSourceURL())
}

func TestLead_Redacted(t *testing.T) {
	email := "contracts@agency.gov"
	u := "https://sam.gov/opp/123"
	l := Lead{ID: 7, Title: "Janitorial Services", ContactEmail: &email, SourceURL: &u}

	r := l.Redacted()
	assert.Nil(t, r.ContactEmail)
	assert.Nil(t, r.SourceURL)
	assert.Equal(t, "Janitorial Services", r.Title)

	// Original is untouched.
	assert.NotNil(t, l.ContactEmail)
}

func TestQuota_Remaining(t *testing.T) {
	assert.Equal(t, 3, Quota{ViewsUsed: 0, Limit: 3}.Remaining())
	assert.Equal(t, 1, Quota{ViewsUsed: 2, Limit: 3}.Remaining())
	assert.Equal(t, 0, Quota{ViewsUsed: 3, Limit: 3}.Remaining())
	assert.Equal(t, 0, Quota{ViewsUsed: 5, Limit: 3}.Remaining())
}

func TestTier_Unlimited(t *testing.T) {
	assert.False(t, TierAnonymous.Unlimited())
	assert.False(t, TierFree.Unlimited())
	assert.True(t, TierPaid.Unlimited())
	assert.True(t, TierAdmin.Unlimited())
}

func TestEnrichmentRun_Tally(t *testing.T) {
	r := EnrichmentRun{Results: []LeadOutcome{
		{LeadID: 1, Outcome: OutcomeFilled},
		{LeadID: 2, Outcome: OutcomeFailed},
		{LeadID: 3, Outcome: OutcomeFilled},
		{LeadID: 4, Outcome: OutcomeSkipped},
	}}
	r.Tally()
	assert.Equal(t, 2, r.Filled)
	assert.Equal(t, 1, r.Skipped)
	assert.Equal(t, 1, r.Failed)
}

func TestCategory_Valid(t *testing.T) {
	assert.True(t, CategoryFederal.Valid())
	assert.True(t, CategoryCommercial.Valid())
	assert.False(t, Category("galactic").Valid())
}
