// Package roles resolves channel role relationships (moderators,
// editors, VIPs, subscribers, followers) with a cache-coherent
// pagination strategy.
//
// Full listings sweep the vendor's paginated endpoints at the page
// cap. Before sweeping past the first page the resolver compares the
// page against its cached entry for the channel: when every id on the
// page is already cached the cached set is served and no further
// pages are fetched. The heuristic is cheap but one-sided: it observes
// additions, not removals, so a stale entry persists until an addition
// or an explicit cache clear. Membership checks that back mutation
// verification therefore query the vendor directly with an id filter
// instead of consulting the cache.
//
// Cache entries are replaced whole under a single writer lock and
// snapshots are copied out, so readers never observe a partially
// updated sweep.
package roles
