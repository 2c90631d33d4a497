/*
Package sites manages team websites: creation with subdomain rules, content
storage, the public pages, exports and publication to object storage.

# Subdomains

Subdomains are lowercase, 3 to 40 characters of [a-z0-9-], may not start or
end with a hyphen, and may not be reserved. Uniqueness is case-insensitive
and enforced by the database. The reserved set can be extended at runtime
through Reserved.Set, which the config file watcher calls on reload.

# Public pages

Pages turns a stored content document into HTML by way of content.Normalize
and render.Render. Results are kept in a RenderCache keyed by subdomain and by
site ID; saving content invalidates both keys. Concurrent misses for the same
key are collapsed with singleflight.

# Publishing

Publisher uploads <prefix><subdomain>/index.html to S3-compatible storage and
records the object key and checksum in site_publications. The worker
republishes every previously published site on a schedule.
*/
package sites
