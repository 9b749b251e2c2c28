// Package validator builds declarative validation out of small Rule values.
//
// Each rule pairs a Check func with the ValidationError reported when the
// check fails. Apply evaluates all rules and returns the failures as a
// ValidationErrors value, which implements error:
//
//	err := validator.Apply(
//	    validator.Required("title", in.Title),
//	    validator.MaxLen("title", in.Title, 200),
//	    validator.When(in.ActionURL != "", validator.ValidLink("actionUrl", in.ActionURL)),
//	)
//	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
//	    _ = verrs.Fields()
//	}
package validator
