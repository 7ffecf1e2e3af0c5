// Package model defines the provider-neutral generation interface and the
// normalized request/response structures shared by all provider adapters.
package model
