// coedit - collaborative document editing core
// Copyright (C) 2025 the coedit authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package errors

import (
	"errors"
	"strings"
)

type UserFacingError interface {
	IsUserFacing()
}

// RetryableError marks conditions the caller may retry after re-syncing.
type RetryableError interface {
	IsRetryable()
}

type Causer interface {
	Cause() error
}

func GetCause(err error) error {
	if causer, ok := err.(Causer); ok {
		return GetCause(causer.Cause())
	}
	return err
}

func IsRetryableError(err error) bool {
	_, ok := GetCause(err).(RetryableError)
	return ok
}

func GetPublicMessage(err error, fallback string) string {
	if _, ok := GetCause(err).(UserFacingError); ok {
		return err.Error()
	}
	return fallback
}

type TaggedError struct {
	msg   string
	cause error
}

func (t *TaggedError) Error() string {
	return t.msg + ": " + t.cause.Error()
}

func (t *TaggedError) Cause() error {
	return t.cause
}

func (t *TaggedError) Unwrap() error {
	return t.cause
}

func Tag(err error, msg string) *TaggedError {
	return &TaggedError{msg: msg, cause: err}
}

type MergedError struct {
	errors []error
}

func (m *MergedError) Error() string {
	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}
	var b strings.Builder
	b.WriteString("merged: ")
	for i, err := range m.errors {
		if i != 0 {
			b.WriteString(" + ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

func (m *MergedError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

func (m *MergedError) Finalize() error {
	if len(m.errors) == 0 {
		return nil
	}
	if len(m.errors) == 1 {
		return m.errors[0]
	}
	return m
}

func Merge(errors ...error) error {
	m := MergedError{}
	for _, err := range errors {
		m.Add(err)
	}
	return m.Finalize()
}

type ValidationError struct {
	Msg string
}

func (v *ValidationError) Error() string {
	return v.Msg
}

func (v *ValidationError) IsUserFacing() {}

func IsValidationError(err error) bool {
	_, ok := GetCause(err).(*ValidationError)
	return ok
}

type NotFoundError struct{}

func (e *NotFoundError) Error() string {
	return "not found"
}

func (e *NotFoundError) IsUserFacing() {}

func IsNotFoundError(err error) bool {
	_, ok := GetCause(err).(*NotFoundError)
	return ok
}

type NotAuthorizedError struct{}

func (e *NotAuthorizedError) Error() string {
	return "not authorized"
}

func (e *NotAuthorizedError) IsUserFacing() {}

func IsNotAuthorizedError(err error) bool {
	_, ok := GetCause(err).(*NotAuthorizedError)
	return ok
}

type InvalidStateError struct {
	Msg string
}

func (i *InvalidStateError) Error() string {
	return "invalid state: " + i.Msg
}

func (i *InvalidStateError) IsUserFacing() {}

func IsInvalidStateError(err error) bool {
	_, ok := GetCause(err).(*InvalidStateError)
	return ok
}

type AlreadyCollaboratorError struct{}

func (e *AlreadyCollaboratorError) Error() string {
	return "user is already a collaborator"
}

func (e *AlreadyCollaboratorError) IsUserFacing() {}

func IsAlreadyCollaboratorError(err error) bool {
	_, ok := GetCause(err).(*AlreadyCollaboratorError)
	return ok
}

// EditConflictError is raised when the per-document lock could not be
// acquired within the bounded retries. The client should re-sync and
// resubmit.
type EditConflictError struct{}

func (e *EditConflictError) Error() string {
	return "concurrent edit conflict, re-sync and resubmit"
}

func (e *EditConflictError) IsUserFacing() {}

func (e *EditConflictError) IsRetryable() {}

func IsEditConflictError(err error) bool {
	_, ok := GetCause(err).(*EditConflictError)
	return ok
}

// VersionConflictError is raised when the document body was persisted by
// someone else between reading and writing it.
type VersionConflictError struct{}

func (e *VersionConflictError) Error() string {
	return "document version changed concurrently"
}

func (e *VersionConflictError) IsUserFacing() {}

func (e *VersionConflictError) IsRetryable() {}

func IsVersionConflictError(err error) bool {
	_, ok := GetCause(err).(*VersionConflictError)
	return ok
}

type CodedError struct {
	Msg string
}

func (e *CodedError) Error() string {
	return e.Msg
}

func (e *CodedError) IsUserFacing() {}

// New is a re-export of the built-in errors.New function.
var New = errors.New
