package bsp

import "testing"

func TestNormalizeReasonEngagementCodes(t *testing.T) {
	for _, code := range []string{"131047", "re_engagement", "RE_ENGAGEMENT_REQUIRED", "outside_window"} {
		if got := normalizeReason(code); got != ReasonReengagementRequired {
			t.Errorf("normalizeReason(%q) = %q, want %q", code, got, ReasonReengagementRequired)
		}
	}
}

func TestNormalizeReasonPassesUnknownThrough(t *testing.T) {
	if got := normalizeReason("spam_rate_limit"); got != "spam_rate_limit" {
		t.Errorf("unexpected reason %q", got)
	}
	if got := normalizeReason(""); got != "unknown" {
		t.Errorf("empty code should map to unknown, got %q", got)
	}
}

func TestPolicyRejected(t *testing.T) {
	r := Result{Status: StatusRejected, ReasonCode: ReasonReengagementRequired}
	if !r.PolicyRejected() {
		t.Error("engagement rejection should be a policy rejection")
	}

	for _, r := range []Result{
		{Status: StatusRejected, ReasonCode: ReasonInvalidRecipient},
		{Status: StatusSent},
		{Status: StatusFailed, ReasonCode: ReasonReengagementRequired},
	} {
		if r.PolicyRejected() {
			t.Errorf("%+v should not be a policy rejection", r)
		}
	}
}
