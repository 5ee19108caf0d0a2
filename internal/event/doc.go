// Package event defines the labels recorded in the simulation's causal
// graph, and the predicates systems subscribe with.
package event
