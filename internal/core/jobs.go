// Package core provides the ports and shared aliases for the dispatcher.
package core

import (
	"github.com/growthlabs/dispatcher/internal/domain/model"
)

// JobType is re-exported for HTTP handlers to avoid direct coupling to model.
type JobType = model.JobType

// CreateJobRequest is re-exported for HTTP handlers to avoid direct coupling to model.
type CreateJobRequest = model.CreateJobRequest
