// Package testutil provides shared fixtures for package tests: shape
// registries for the building domain and cyclic schemas, a fixed compile
// id generator and a stepping clock.
package testutil
