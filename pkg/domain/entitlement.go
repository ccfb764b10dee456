package domain

// Unlimited marks a limit with no cap.
const Unlimited = -1

// Storage limits per tier, in bytes.
const (
	mb = 1024 * 1024
	gb = 1024 * mb
)

// Entitlements is the snapshot of limits and feature flags derived from a
// subscription tier. It is computed on demand and never stored.
type Entitlements struct {
	MaxStudents       int
	MaxCourses        int
	MaxInstructors    int
	StorageLimitBytes int64

	Features map[string]bool
}

// Feature flag names.
const (
	FeatureCustomDomain       = "custom_domain"
	FeatureAdvancedAnalytics  = "advanced_analytics"
	FeatureAPIAccess          = "api_access"
	FeatureWhiteLabel         = "white_label"
	FeaturePaymentIntegration = "payment_integration"
	FeatureSCORMSupport       = "scorm_support"
	FeatureMultiBranch        = "multi_branch"
	FeatureSSOIntegration     = "sso_integration"
)

// EntitlementsForTier maps a subscription tier to its entitlement snapshot.
// Unknown tiers fall back to the free tier, so the mapping is total.
func EntitlementsForTier(tier SubscriptionTier) Entitlements {
	e := Entitlements{
		MaxStudents:       50,
		MaxCourses:        3,
		MaxInstructors:    5,
		StorageLimitBytes: 500 * mb,
	}

	switch tier {
	case TierStarter:
		e.MaxStudents = 500
		e.MaxCourses = 20
		e.MaxInstructors = 20
		e.StorageLimitBytes = 5 * gb
	case TierProfessional:
		e.MaxStudents = 2000
		e.MaxCourses = Unlimited
		e.MaxInstructors = 100
		e.StorageLimitBytes = 50 * gb
	case TierEnterprise:
		e.MaxStudents = Unlimited
		e.MaxCourses = Unlimited
		e.MaxInstructors = Unlimited
		e.StorageLimitBytes = 250 * gb
	}

	professional := tier == TierProfessional || tier == TierEnterprise
	starter := professional || tier == TierStarter

	e.Features = map[string]bool{
		FeatureCustomDomain:       professional,
		FeatureAdvancedAnalytics:  professional,
		FeatureAPIAccess:          professional,
		FeatureWhiteLabel:         professional,
		FeatureMultiBranch:        professional,
		FeaturePaymentIntegration: starter,
		FeatureSCORMSupport:       starter,
		FeatureSSOIntegration:     tier == TierEnterprise,
	}

	return e
}

// HasFeature reports whether the feature flag is granted.
func (e Entitlements) HasFeature(name string) bool {
	return e.Features[name]
}

// CanAddStudent reports whether one more student fits under the limit.
//
// CanAddStudent, CanAddCourse, CanAddInstructor, and CanUseStorage state
// the admission contract that the repository's conditional counter
// updates enforce atomically under concurrency. Any change here must be
// mirrored in those UPDATE predicates.
func (e Entitlements) CanAddStudent(current int) bool {
	return e.MaxStudents == Unlimited || current < e.MaxStudents
}

// CanAddCourse reports whether one more course fits under the limit.
func (e Entitlements) CanAddCourse(current int) bool {
	return e.MaxCourses == Unlimited || current < e.MaxCourses
}

// CanAddInstructor reports whether one more instructor fits under the limit.
func (e Entitlements) CanAddInstructor(current int) bool {
	return e.MaxInstructors == Unlimited || current < e.MaxInstructors
}

// CanUseStorage reports whether additionalBytes fits within the limit.
func (e Entitlements) CanUseStorage(usedBytes, additionalBytes int64) bool {
	return usedBytes+additionalBytes <= e.StorageLimitBytes
}
