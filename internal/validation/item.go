package validation

import "fmt"

var allowedSizes = map[string]struct{}{
	"XS": {}, "S": {}, "M": {}, "L": {}, "XL": {}, "XXL": {},
}

var allowedConditions = map[string]struct{}{
	"new": {}, "like-new": {}, "excellent": {}, "good": {}, "fair": {},
}

// ValidateSize checks a garment size against the catalog's size chart.
// Empty is allowed; size is optional on listings without a fit.
func ValidateSize(size string) error {
	if size == "" {
		return nil
	}
	if _, ok := allowedSizes[size]; !ok {
		return fmt.Errorf("size must be one of XS, S, M, L, XL, XXL")
	}
	return nil
}

// ValidateCondition checks a garment condition grade.
func ValidateCondition(condition string) error {
	if condition == "" {
		return nil
	}
	if _, ok := allowedConditions[condition]; !ok {
		return fmt.Errorf("condition must be one of new, like-new, excellent, good, fair")
	}
	return nil
}

// ValidateTags caps tag count and tag length.
func ValidateTags(tags []string) error {
	if len(tags) > 10 {
		return fmt.Errorf("at most 10 tags allowed")
	}
	for _, tag := range tags {
		if tag == "" {
			return fmt.Errorf("empty tags are not allowed")
		}
		if len(tag) > 30 {
			return fmt.Errorf("tag %q exceeds 30 characters", tag)
		}
	}
	return nil
}
