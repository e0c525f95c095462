// Package metrics provides run summaries computed from the state at each
// output time: outlet discharge, storage bounds and goodness of fit
// against observed discharge.
package metrics
