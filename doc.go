// Package doorman provides the shared domain model for the doorman
// web-session authentication library: accounts, roles, and persistent
// login credentials. The behaviour lives in the sub-packages — secure
// (crypto primitives), session (session store contract and backends),
// guard (request authorization predicates), account (session
// lifecycle), and remember (long-lived re-authentication).
package doorman
