// Package domain holds the core entities shared across the lead pipeline:
// sources, raw and qualified leads, business clients, deliveries, payments,
// and the opt-out/bounce suppression records.
//
// These types carry no behaviour beyond small helpers; all business rules
// live in the packages that consume them (pipeline, delivery, billing).
package domain
