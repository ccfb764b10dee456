package domain

import "testing"

func TestEntitlementsForTier_Limits(t *testing.T) {
	tests := []struct {
		tier           SubscriptionTier
		maxStudents    int
		maxCourses     int
		maxInstructors int
		storageBytes   int64
	}{
		{TierFree, 50, 3, 5, 500 * mb},
		{TierStarter, 500, 20, 20, 5 * gb},
		{TierProfessional, 2000, Unlimited, 100, 50 * gb},
		{TierEnterprise, Unlimited, Unlimited, Unlimited, 250 * gb},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			e := EntitlementsForTier(tt.tier)
			if e.MaxStudents != tt.maxStudents {
				t.Errorf("MaxStudents = %d, want %d", e.MaxStudents, tt.maxStudents)
			}
			if e.MaxCourses != tt.maxCourses {
				t.Errorf("MaxCourses = %d, want %d", e.MaxCourses, tt.maxCourses)
			}
			if e.MaxInstructors != tt.maxInstructors {
				t.Errorf("MaxInstructors = %d, want %d", e.MaxInstructors, tt.maxInstructors)
			}
			if e.StorageLimitBytes != tt.storageBytes {
				t.Errorf("StorageLimitBytes = %d, want %d", e.StorageLimitBytes, tt.storageBytes)
			}
		})
	}
}

func TestEntitlementsForTier_UnknownTierFallsBackToFree(t *testing.T) {
	e := EntitlementsForTier(SubscriptionTier("platinum"))
	free := EntitlementsForTier(TierFree)

	if e.MaxStudents != free.MaxStudents || e.MaxCourses != free.MaxCourses {
		t.Errorf("unknown tier limits = %+v, want free tier limits %+v", e, free)
	}
	if e.HasFeature(FeaturePaymentIntegration) {
		t.Error("unknown tier should not grant payment_integration")
	}
}

func TestEntitlementsForTier_Features(t *testing.T) {
	tests := []struct {
		tier    SubscriptionTier
		feature string
		want    bool
	}{
		{TierFree, FeaturePaymentIntegration, false},
		{TierFree, FeatureCustomDomain, false},
		{TierStarter, FeaturePaymentIntegration, true},
		{TierStarter, FeatureSCORMSupport, true},
		{TierStarter, FeatureCustomDomain, false},
		{TierStarter, FeatureSSOIntegration, false},
		{TierProfessional, FeatureCustomDomain, true},
		{TierProfessional, FeatureAdvancedAnalytics, true},
		{TierProfessional, FeatureAPIAccess, true},
		{TierProfessional, FeatureWhiteLabel, true},
		{TierProfessional, FeatureMultiBranch, true},
		{TierProfessional, FeaturePaymentIntegration, true},
		{TierProfessional, FeatureSSOIntegration, false},
		{TierEnterprise, FeatureSSOIntegration, true},
		{TierEnterprise, FeatureCustomDomain, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier)+"/"+tt.feature, func(t *testing.T) {
			e := EntitlementsForTier(tt.tier)
			if got := e.HasFeature(tt.feature); got != tt.want {
				t.Errorf("HasFeature(%q) on %s = %v, want %v", tt.feature, tt.tier, got, tt.want)
			}
		})
	}
}

func TestEntitlements_CanAdd(t *testing.T) {
	free := EntitlementsForTier(TierFree)

	if !free.CanAddStudent(49) {
		t.Error("49 of 50 students should allow one more")
	}
	if free.CanAddStudent(50) {
		t.Error("50 of 50 students should be at the limit")
	}
	if !free.CanAddCourse(2) {
		t.Error("2 of 3 courses should allow one more")
	}
	if free.CanAddCourse(3) {
		t.Error("3 of 3 courses should be at the limit")
	}
	if free.CanAddInstructor(5) {
		t.Error("5 of 5 instructors should be at the limit")
	}

	enterprise := EntitlementsForTier(TierEnterprise)
	if !enterprise.CanAddStudent(1_000_000) {
		t.Error("unlimited students should never hit a limit")
	}
	if !enterprise.CanAddCourse(1_000_000) {
		t.Error("unlimited courses should never hit a limit")
	}
}

func TestEntitlements_CanUseStorage(t *testing.T) {
	free := EntitlementsForTier(TierFree)

	tests := []struct {
		name       string
		used       int64
		additional int64
		want       bool
	}{
		{"fits well under", 0, 100 * mb, true},
		{"fits exactly", 400 * mb, 100 * mb, true},
		{"one byte over", 400*mb + 1, 100 * mb, false},
		{"already full", 500 * mb, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := free.CanUseStorage(tt.used, tt.additional); got != tt.want {
				t.Errorf("CanUseStorage(%d, %d) = %v, want %v", tt.used, tt.additional, got, tt.want)
			}
		})
	}
}
