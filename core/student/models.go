package student

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

type Student struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	RollNumber string      `json:"roll_number"`
	ClassName  string      `json:"class_name"`
	Email      string      `json:"email"`
	Phone      null.String `json:"phone,omitempty"`
	CreatedAt  time.Time   `json:"created_at"` // UTC
	UpdatedAt  time.Time   `json:"updated_at"` // UTC
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name       string      `json:"name" validate:"required"`
	RollNumber string      `json:"roll_number" validate:"required,alphanum_"`
	ClassName  string      `json:"class_name" validate:"required"`
	Email      string      `json:"email" validate:"required,email"`
	Phone      null.String `json:"phone"`
}

func (ns *NewStudent) Validate(svc Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.RollNumber = core.CleanString(ns.RollNumber, true /* lower */)
	ns.ClassName = core.CleanString(ns.ClassName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)

	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckUniqueness(ns.RollNumber, ns.Email)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent struct {
	Name       string      `json:"name"`
	RollNumber string      `json:"roll_number" validate:"omitempty,alphanum_"`
	ClassName  string      `json:"class_name"`
	Email      string      `json:"email" validate:"omitempty,email"`
	Phone      null.String `json:"phone"`
}

func (us *UpdateStudent) Validate(orig Student, svc Service) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if rn := core.CleanString(us.RollNumber, true /* lower */); rn != "" {
		us.RollNumber = rn
	} else {
		us.RollNumber = orig.RollNumber
	}
	if cn := core.CleanString(us.ClassName); cn != "" {
		us.ClassName = cn
	} else {
		us.ClassName = orig.ClassName
	}
	if email := core.CleanString(us.Email, true /* lower */); email != "" {
		us.Email = email
	} else {
		us.Email = orig.Email
	}
	if !us.Phone.Valid {
		us.Phone = orig.Phone
	}

	if err := core.Validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckUniqueness(us.RollNumber, us.Email, orig)
}

type QueryFilter struct {
	// Search does a case-insensitive match on one of Name, RollNumber or Email.
	Search    string `query:"search"`
	ClassName string `query:"class"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.ClassName == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ClassName = core.CleanString(qf.ClassName)
}
