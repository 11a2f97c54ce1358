package application

import "github.com/go-playground/validator/v10"

// Package-level validator instance for request validation.
var validate = validator.New()
