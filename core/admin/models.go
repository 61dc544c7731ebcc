package admin

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Nono8Six/ia-learning-sub000/core"
)

// Course statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

type (
	Course struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Phase       string    `json:"phase"`
		Duration    string    `json:"duration"`
		Status      string    `json:"status"`
		OrderIndex  int       `json:"order_index"`
		ModuleCount int       `json:"module_count"` // derived, the backend does not precompute it
		CreatedAt   time.Time `json:"created_at"`   // UTC
		UpdatedAt   time.Time `json:"updated_at"`   // UTC
	}

	Module struct {
		ID         string    `json:"id"`
		CourseID   string    `json:"course_id"`
		Title      string    `json:"title"`
		Duration   string    `json:"duration"`
		Status     string    `json:"status"`
		OrderIndex int       `json:"order_index"`
		CreatedAt  time.Time `json:"created_at"`
		UpdatedAt  time.Time `json:"updated_at"`
	}

	Coupon struct {
		ID              string    `json:"id"`
		Code            string    `json:"code"`
		DiscountPercent int       `json:"discount_percent"`
		MaxUses         int       `json:"max_uses"`
		UsedCount       int       `json:"used_count"`
		ValidFrom       time.Time `json:"valid_from"`
		ValidUntil      time.Time `json:"valid_until"`
		IsActive        bool      `json:"is_active"`
		CreatedAt       time.Time `json:"created_at"`
		UpdatedAt       time.Time `json:"updated_at"`
	}

	AdminUser struct {
		ID              string    `json:"id"`
		Email           string    `json:"email"`
		FullName        string    `json:"full_name"`
		Role            string    `json:"role"`
		ProgressPercent float64   `json:"progress_percent"` // derived
		CourseCount     int       `json:"course_count"`     // derived
		CreatedAt       time.Time `json:"created_at"`
		LastSignIn      time.Time `json:"last_sign_in"`
	}

	UserStats struct {
		TotalUsers   int `json:"total_users"`
		ActiveUsers  int `json:"active_users"`
		NewThisMonth int `json:"new_this_month"`
	}

	CourseStats struct {
		TotalCourses     int     `json:"total_courses"`
		PublishedCourses int     `json:"published_courses"`
		TotalModules     int     `json:"total_modules"`
		CompletionRate   float64 `json:"completion_rate"`
	}

	Activity struct {
		ID         string    `json:"id"`
		UserEmail  string    `json:"user_email"`
		Action     string    `json:"action"`
		Detail     string    `json:"detail"`
		OccurredAt time.Time `json:"occurred_at"`
	}

	Variant struct {
		Name           string  `json:"name"`
		ConversionRate float64 `json:"conversion_rate"`
	}

	Experiment struct {
		ID       string    `json:"id"`
		Name     string    `json:"name"`
		Status   string    `json:"status"`
		Variants []Variant `json:"variants"`
	}

	// Dashboard aggregates the four admin dashboard sub-queries. Once the
	// initial load settles it always holds either live data in full or the
	// complete mock substitute, never a partial mix.
	Dashboard struct {
		UserStats         UserStats    `json:"user_stats"`
		CourseStats       CourseStats  `json:"course_stats"`
		RecentActivities  []Activity   `json:"recent_activities"`
		ActiveExperiments []Experiment `json:"active_experiments"`
	}
)

// Mutation payloads

type (
	NewCourse struct {
		Title       string `json:"title" validate:"required,max=200"`
		Description string `json:"description" validate:"max=2000"`
		Phase       string `json:"phase" validate:"required,max=50"`
		Duration    string `json:"duration" validate:"max=50"`
		Status      string `json:"status" validate:"required,oneof=draft published archived"`
		OrderIndex  int    `json:"order_index" validate:"min=0"`
	}

	UpdateCourse struct {
		Title       string `json:"title" validate:"omitempty,max=200"`
		Description string `json:"description" validate:"max=2000"`
		Phase       string `json:"phase" validate:"omitempty,max=50"`
		Duration    string `json:"duration" validate:"max=50"`
		Status      string `json:"status" validate:"omitempty,oneof=draft published archived"`
		OrderIndex  *int   `json:"order_index" validate:"omitempty,min=0"`
	}

	NewModule struct {
		CourseID   string `json:"course_id" validate:"required,uuid4"`
		Title      string `json:"title" validate:"required,max=200"`
		Duration   string `json:"duration" validate:"max=50"`
		Status     string `json:"status" validate:"required,oneof=draft published archived"`
		OrderIndex int    `json:"order_index" validate:"min=0"`
	}

	UpdateModule struct {
		Title      string `json:"title" validate:"omitempty,max=200"`
		Duration   string `json:"duration" validate:"max=50"`
		Status     string `json:"status" validate:"omitempty,oneof=draft published archived"`
		OrderIndex *int   `json:"order_index" validate:"omitempty,min=0"`
	}

	NewCoupon struct {
		Code            string    `json:"code" validate:"required,couponcode"`
		DiscountPercent int       `json:"discount_percent" validate:"required,min=1,max=100"`
		MaxUses         int       `json:"max_uses" validate:"min=0"`
		ValidFrom       time.Time `json:"valid_from"`
		ValidUntil      time.Time `json:"valid_until"`
		IsActive        bool      `json:"is_active"`
	}

	UpdateCoupon struct {
		DiscountPercent *int       `json:"discount_percent" validate:"omitempty,min=1,max=100"`
		MaxUses         *int       `json:"max_uses" validate:"omitempty,min=0"`
		ValidUntil      *time.Time `json:"valid_until"`
		IsActive        *bool      `json:"is_active"`
	}
)

func (c NewCourse) Validate(validate *validator.Validate) error {
	return validate.Struct(c)
}

func (c UpdateCourse) Validate(validate *validator.Validate) error {
	return validate.Struct(c)
}

func (m NewModule) Validate(validate *validator.Validate) error {
	return validate.Struct(m)
}

func (m UpdateModule) Validate(validate *validator.Validate) error {
	return validate.Struct(m)
}

func (c NewCoupon) Validate(validate *validator.Validate) error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if !c.ValidUntil.IsZero() && !c.ValidUntil.After(c.ValidFrom) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "valid_until", Error: "must be after valid_from",
		})
	}
	return nil
}

func (c UpdateCoupon) Validate(validate *validator.Validate) error {
	return validate.Struct(c)
}

// Row normalization

func courseFromRow(r core.Row) Course {
	crs := Course{
		ID:          r.String("id"),
		Title:       r.String("title"),
		Description: r.String("description"),
		Phase:       r.String("phase"),
		Duration:    r.String("duration"),
		Status:      r.String("status"),
		OrderIndex:  r.Int("order_index"),
		CreatedAt:   r.Time("created_at"),
		UpdatedAt:   r.Time("updated_at"),
	}
	// embedded aggregate: "modules": [{"count": N}]
	if embeds, ok := r["modules"].([]interface{}); ok && len(embeds) > 0 {
		if cnt, ok := embeds[0].(map[string]interface{}); ok {
			crs.ModuleCount = core.Row(cnt).Int("count")
		}
	}
	return crs
}

func moduleFromRow(r core.Row) Module {
	return Module{
		ID:         r.String("id"),
		CourseID:   r.String("course_id"),
		Title:      r.String("title"),
		Duration:   r.String("duration"),
		Status:     r.String("status"),
		OrderIndex: r.Int("order_index"),
		CreatedAt:  r.Time("created_at"),
		UpdatedAt:  r.Time("updated_at"),
	}
}

func couponFromRow(r core.Row) Coupon {
	return Coupon{
		ID:              r.String("id"),
		Code:            r.String("code"),
		DiscountPercent: r.Int("discount_percent"),
		MaxUses:         r.Int("max_uses"),
		UsedCount:       r.Int("used_count"),
		ValidFrom:       r.Time("valid_from"),
		ValidUntil:      r.Time("valid_until"),
		IsActive:        r.Bool("is_active"),
		CreatedAt:       r.Time("created_at"),
		UpdatedAt:       r.Time("updated_at"),
	}
}

func userFromRow(r core.Row) AdminUser {
	usr := AdminUser{
		ID:         r.String("id"),
		Email:      r.String("email"),
		FullName:   r.String("full_name"),
		Role:       r.String("role"),
		CreatedAt:  r.Time("created_at"),
		LastSignIn: r.Time("last_sign_in_at"),
	}
	// embedded enrollments: derive course count and mean completion
	if embeds, ok := r["enrollments"].([]interface{}); ok {
		var sum float64
		for _, e := range embeds {
			if enr, ok := e.(map[string]interface{}); ok {
				sum += core.Row(enr).Float("progress_percent")
			}
		}
		usr.CourseCount = len(embeds)
		if usr.CourseCount > 0 {
			usr.ProgressPercent = sum / float64(usr.CourseCount)
		}
	}
	return usr
}

func activityFromRow(r core.Row) Activity {
	return Activity{
		ID:         r.String("id"),
		UserEmail:  r.String("user_email"),
		Action:     r.String("action"),
		Detail:     r.String("detail"),
		OccurredAt: r.Time("occurred_at"),
	}
}

func experimentFromRow(r core.Row) Experiment {
	exp := Experiment{
		ID:     r.String("id"),
		Name:   r.String("name"),
		Status: r.String("status"),
	}
	if embeds, ok := r["experiment_variants"].([]interface{}); ok {
		for _, e := range embeds {
			if v, ok := e.(map[string]interface{}); ok {
				vr := core.Row(v)
				exp.Variants = append(exp.Variants, Variant{
					Name:           vr.String("name"),
					ConversionRate: vr.Float("conversion_rate"),
				})
			}
		}
	}
	return exp
}
