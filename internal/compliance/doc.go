// Package compliance maps scan results onto numbered privacy and transport
// security criteria and the legal frameworks those criteria cite.
package compliance
