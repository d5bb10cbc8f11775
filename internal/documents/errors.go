package documents

import "errors"

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrFieldNotFound     = errors.New("field not found")
	ErrSignerNotFound    = errors.New("signer not found")
	ErrShareLinkNotFound = errors.New("share link not found")
	ErrShareLinkExpired  = errors.New("share link expired")
	ErrNoSigners         = errors.New("no signers found for this document")
	ErrSignerExists      = errors.New("signer with this email already exists for this document")
	ErrSignerImmutable   = errors.New("cannot remove a signer who has already signed the document")
	ErrForbidden         = errors.New("not authorized to access this document")
	ErrValidation        = errors.New("validation failed")
	ErrWorkflowClosed    = errors.New("document workflow is closed")
)
