// Package core defines the error vocabulary shared by every LeapGlot stage.
//
// The Golden Rule: pkg/core imports ONLY pkg/token and stdlib.
// All other packages depend on core, not the reverse.
package core
