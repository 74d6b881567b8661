// Package probe implements the two source retrieval strategies.
//
// A DirectQueryProbe talks to the JSON check endpoint of a vaccination
// center, a RenderedPageProbe drives a borrowed browser session through the
// search page and counts the bookable slots in the resulting document.
package probe
