// Package tracker records page views.
//
// A Tracker stamps each view with the session identity, appends it to the
// local activity log synchronously and hands it to a Forwarder, which sends it
// to the remote view-history endpoint in the background. Forwarding is
// at-most-once: failures are logged and dropped, and deliveries may reach the
// remote store in any order.
package tracker
