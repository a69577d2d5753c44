package service

import "fmt"

// DataIntegrityError marks a case whose stored data is missing or malformed
// (absent case row, dangling owner reference). It fails only the evaluation
// of that case; other cases are unaffected.
type DataIntegrityError struct {
	CaseID int64
	Err    error
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity failure for case %d: %v", e.CaseID, e.Err)
}

func (e *DataIntegrityError) Unwrap() error {
	return e.Err
}
