package publication

import (
	"context"

	"github.com/cnm4us/aws-sub000/internal/models"
)

// approvalRule decides whether a space requires review. matched reports
// whether the rule applied; the first matching rule wins.
type approvalRule struct {
	name   string
	decide func(site models.SiteSettings, space *models.Space) (required, matched bool)
}

var approvalRules = []approvalRule{
	{
		name: "site_review",
		decide: func(site models.SiteSettings, space *models.Space) (bool, bool) {
			switch space.Type {
			case models.SpaceTypeGroup:
				return true, site.RequireGroupReview
			case models.SpaceTypeChannel:
				return true, site.RequireChannelReview
			}
			return false, false
		},
	},
	{
		name: "space_setting",
		decide: func(_ models.SiteSettings, space *models.Space) (bool, bool) {
			v := space.ParsedSettings().Publishing.RequireApproval
			if v == nil {
				return false, false
			}
			return *v, true
		},
	},
	{
		name: "space_type_default",
		decide: func(_ models.SiteSettings, space *models.Space) (bool, bool) {
			return space.Type == models.SpaceTypeChannel, true
		},
	},
}

// RequiresApproval applies the review rules to a space and the current site
// settings. Site-wide review flags cannot be relaxed by a space.
func RequiresApproval(site models.SiteSettings, space *models.Space) bool {
	required, _ := requiresApproval(site, space)
	return required
}

func requiresApproval(site models.SiteSettings, space *models.Space) (bool, string) {
	for _, rule := range approvalRules {
		if required, ok := rule.decide(site, space); ok {
			return required, rule.name
		}
	}
	return false, "none"
}

// EffectiveRequiresApproval reports whether new or owner-republished
// publications in space must wait for review.
func (s *Service) EffectiveRequiresApproval(ctx context.Context, space *models.Space) (bool, error) {
	site, err := s.repo.LoadSiteSettings(ctx)
	if err != nil {
		return false, err
	}
	required, _ := requiresApproval(site, space)
	return required, nil
}
