package admin

import "time"

// Fixed, realistic demo datasets substituted whenever live data is
// unavailable. They are deliberately constant so the UI, tests and the
// mockdata CLI command all agree on what "demo mode" shows.

var mockTime = time.Date(2024, 11, 4, 9, 30, 0, 0, time.UTC)

func MockCourses() []Course {
	return []Course{
		{
			ID: "a1f0c2e4-0000-4000-8000-000000000001", Title: "AI Foundations",
			Description: "Core concepts: prompts, context, and model behavior.",
			Phase:       "Phase 1", Duration: "4h30", Status: StatusPublished,
			OrderIndex: 1, ModuleCount: 3, CreatedAt: mockTime, UpdatedAt: mockTime,
		},
		{
			ID: "a1f0c2e4-0000-4000-8000-000000000002", Title: "Prompt Engineering in Practice",
			Description: "Structured prompting, iteration and evaluation.",
			Phase:       "Phase 1", Duration: "3h15", Status: StatusPublished,
			OrderIndex: 2, ModuleCount: 3, CreatedAt: mockTime, UpdatedAt: mockTime,
		},
		{
			ID: "a1f0c2e4-0000-4000-8000-000000000003", Title: "Automating Your Workflows",
			Description: "From single prompts to chained, tool-using assistants.",
			Phase:       "Phase 2", Duration: "5h00", Status: StatusPublished,
			OrderIndex: 3, ModuleCount: 3, CreatedAt: mockTime, UpdatedAt: mockTime,
		},
		{
			ID: "a1f0c2e4-0000-4000-8000-000000000004", Title: "Building AI Products",
			Description: "Shipping AI features users actually trust.",
			Phase:       "Phase 3", Duration: "6h45", Status: StatusDraft,
			OrderIndex: 4, ModuleCount: 0, CreatedAt: mockTime, UpdatedAt: mockTime,
		},
	}
}

func MockModules(courseID string) []Module {
	return []Module{
		{
			ID: "b2e1d3f5-0000-4000-8000-000000000001", CourseID: courseID,
			Title: "Getting Started", Duration: "45min", Status: StatusPublished,
			OrderIndex: 1, CreatedAt: mockTime, UpdatedAt: mockTime,
		},
		{
			ID: "b2e1d3f5-0000-4000-8000-000000000002", CourseID: courseID,
			Title: "Hands-on Lab", Duration: "1h30", Status: StatusPublished,
			OrderIndex: 2, CreatedAt: mockTime, UpdatedAt: mockTime,
		},
		{
			ID: "b2e1d3f5-0000-4000-8000-000000000003", CourseID: courseID,
			Title: "Going Further", Duration: "1h00", Status: StatusDraft,
			OrderIndex: 3, CreatedAt: mockTime, UpdatedAt: mockTime,
		},
	}
}

func MockCoupons() []Coupon {
	return []Coupon{
		{
			ID: "c3d2e4f6-0000-4000-8000-000000000001", Code: "LAUNCH50",
			DiscountPercent: 50, MaxUses: 100, UsedCount: 42,
			ValidFrom: mockTime, ValidUntil: mockTime.AddDate(0, 2, 0),
			IsActive:  true, CreatedAt: mockTime, UpdatedAt: mockTime,
		},
		{
			ID: "c3d2e4f6-0000-4000-8000-000000000002", Code: "EARLYBIRD30",
			DiscountPercent: 30, MaxUses: 200, UsedCount: 187,
			ValidFrom: mockTime, ValidUntil: mockTime.AddDate(0, 1, 0),
			IsActive:  true, CreatedAt: mockTime, UpdatedAt: mockTime,
		},
		{
			ID: "c3d2e4f6-0000-4000-8000-000000000003", Code: "STUDENT20",
			DiscountPercent: 20, MaxUses: 0, UsedCount: 311,
			ValidFrom: mockTime, ValidUntil: mockTime.AddDate(1, 0, 0),
			IsActive:  true, CreatedAt: mockTime, UpdatedAt: mockTime,
		},
		{
			ID: "c3d2e4f6-0000-4000-8000-000000000004", Code: "BLACKFRIDAY70",
			DiscountPercent: 70, MaxUses: 500, UsedCount: 500,
			ValidFrom: mockTime.AddDate(0, -1, 0), ValidUntil: mockTime,
			IsActive:  false, CreatedAt: mockTime, UpdatedAt: mockTime,
		},
	}
}

func MockUsers() []AdminUser {
	return []AdminUser{
		{
			ID: "d4e3f5a7-0000-4000-8000-000000000001", Email: "marie.laurent@example.com",
			FullName: "Marie Laurent", Role: "student", ProgressPercent: 72.5, CourseCount: 3,
			CreatedAt: mockTime.AddDate(0, -6, 0), LastSignIn: mockTime,
		},
		{
			ID: "d4e3f5a7-0000-4000-8000-000000000002", Email: "thomas.bernard@example.com",
			FullName: "Thomas Bernard", Role: "student", ProgressPercent: 31.0, CourseCount: 2,
			CreatedAt: mockTime.AddDate(0, -3, 0), LastSignIn: mockTime.AddDate(0, 0, -4),
		},
		{
			ID: "d4e3f5a7-0000-4000-8000-000000000003", Email: "sophie.martin@example.com",
			FullName: "Sophie Martin", Role: "admin", ProgressPercent: 100, CourseCount: 4,
			CreatedAt: mockTime.AddDate(-1, 0, 0), LastSignIn: mockTime,
		},
		{
			ID: "d4e3f5a7-0000-4000-8000-000000000004", Email: "lucas.petit@example.com",
			FullName: "Lucas Petit", Role: "student", ProgressPercent: 8.3, CourseCount: 1,
			CreatedAt: mockTime.AddDate(0, 0, -12), LastSignIn: mockTime.AddDate(0, 0, -1),
		},
		{
			ID: "d4e3f5a7-0000-4000-8000-000000000005", Email: "emma.roux@example.com",
			FullName: "Emma Roux", Role: "student", ProgressPercent: 54.9, CourseCount: 2,
			CreatedAt: mockTime.AddDate(0, -2, 0), LastSignIn: mockTime.AddDate(0, 0, -7),
		},
	}
}

func MockDashboard() Dashboard {
	return Dashboard{
		UserStats:   UserStats{TotalUsers: 1247, ActiveUsers: 389, NewThisMonth: 86},
		CourseStats: CourseStats{TotalCourses: 4, PublishedCourses: 3, TotalModules: 9, CompletionRate: 63.4},
		RecentActivities: []Activity{
			{ID: "e5f4a6b8-0000-4000-8000-000000000001", UserEmail: "marie.laurent@example.com", Action: "module_completed", Detail: "Hands-on Lab", OccurredAt: mockTime},
			{ID: "e5f4a6b8-0000-4000-8000-000000000002", UserEmail: "lucas.petit@example.com", Action: "course_enrolled", Detail: "AI Foundations", OccurredAt: mockTime.Add(-25 * time.Minute)},
			{ID: "e5f4a6b8-0000-4000-8000-000000000003", UserEmail: "emma.roux@example.com", Action: "coupon_redeemed", Detail: "EARLYBIRD30", OccurredAt: mockTime.Add(-2 * time.Hour)},
			{ID: "e5f4a6b8-0000-4000-8000-000000000004", UserEmail: "thomas.bernard@example.com", Action: "module_completed", Detail: "Getting Started", OccurredAt: mockTime.Add(-5 * time.Hour)},
		},
		ActiveExperiments: []Experiment{
			{
				ID: "f6a5b7c9-0000-4000-8000-000000000001", Name: "landing-headline", Status: "running",
				Variants: []Variant{
					{Name: "control", ConversionRate: 2.4},
					{Name: "benefit-led", ConversionRate: 3.1},
				},
			},
			{
				ID: "f6a5b7c9-0000-4000-8000-000000000002", Name: "checkout-cta", Status: "running",
				Variants: []Variant{
					{Name: "control", ConversionRate: 11.2},
					{Name: "urgency", ConversionRate: 10.8},
					{Name: "social-proof", ConversionRate: 12.6},
				},
			},
		},
	}
}
