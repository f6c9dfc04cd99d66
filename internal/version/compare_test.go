package version

import (
	"testing"

	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type CompareTestSuite struct {
	suite.Suite
}

func TestCompareSuite(t *testing.T) {
	suite.Run(t, new(CompareTestSuite))
}

func (suite *CompareTestSuite) TestCheckCompatibility() {
	tests := []struct {
		name       string
		engine     string
		constraint string
		code       errors.ErrorCode
	}{
		{name: "exact match", engine: "0.4.0", constraint: "0.4.0"},
		{name: "later patch", engine: "v0.4.3", constraint: "0.4.0"},
		{name: "prefixed constraint", engine: "0.4.3", constraint: "v0.4.1"},
		{name: "range", engine: "1.2.0", constraint: ">= 1.0, < 2"},
		{name: "caret", engine: "1.9.0", constraint: "^1.2"},
		{name: "empty constraint", engine: "0.1.0", constraint: ""},
		{name: "development build", engine: "main", constraint: "9.9.9"},
		{name: "earlier patch", engine: "0.4.0", constraint: "0.4.2", code: errors.ErrCodeVersionMismatch},
		{name: "minor differs", engine: "0.5.0", constraint: "0.4.0", code: errors.ErrCodeVersionMismatch},
		{name: "major differs", engine: "2.0.0", constraint: "^1.2", code: errors.ErrCodeVersionMismatch},
		{name: "invalid engine", engine: "abc", constraint: "1.0.0", code: errors.ErrCodeInvalidVersion},
		{name: "invalid constraint", engine: "1.0.0", constraint: "not a version", code: errors.ErrCodeInvalidVersion},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			err := CheckCompatibility(tt.engine, tt.constraint)
			if tt.code == 0 {
				suite.NoError(err)

				return
			}

			suite.True(errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func (suite *CompareTestSuite) TestCheckUsesBuildVersion() {
	original := Version
	defer func() { Version = original }()

	Version = "v0.3.2"
	suite.NoError(Check("0.3"))
	suite.Error(Check("0.4"))
	suite.Equal("v0.3.2", GetVersion())
}
