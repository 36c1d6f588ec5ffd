// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

// Package core holds the small types shared by the core packages
package core

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Operation represents a modifying storage operation, one of Create, Update, Delete
type Operation string

// all supported storage operations
const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// UnmarshalJSON is a custom JSON unmarshaller
func (o *Operation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = Operation(s)
	switch *o {
	case OperationCreate, OperationUpdate, OperationDelete:
		return nil
	default:
		return fmt.Errorf("%s is not valid Operation", s)
	}
}
