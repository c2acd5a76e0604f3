/*
Package domain defines the core types shared across the Treb framework.

These types carry no behavior beyond what a request needs to flow from the
front controller through sanitization to a rendered response: resolved
routes, sanitized argument bags, output modes, and the sentinel errors the
top-level dispatch boundary maps to HTTP status codes.
*/
package domain
