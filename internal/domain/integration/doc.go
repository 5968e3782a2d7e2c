// Package integration contains the ports to the external commerce systems.
//
// Key concepts:
//   - RemoteCart: Port for the WooCommerce Store API cart bound to one session
//   - ProductMapper: Resolves which remote product mirrors a local cart line
//   - OrderGateway: Port for submitting orders to the commerce backend
//   - CouponLookup: Port for coupon validation against the commerce backend
//   - PaymentGateway: Port for card payments (Stripe PaymentIntents)
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
