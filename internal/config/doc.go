// Package config resolves the exporter configuration from command-line
// options and, optionally, a borgmatic configuration file.
//
// Two mutually exclusive sourcing modes exist:
//   - flag mode: -repositories plus -passphrase-file name the targets and
//     the secret directly; no retention record is available.
//   - borgmatic mode: -borgmatic-config points at a borgmatic YAML file
//     that supplies the repository list, the encryption passphrase, and the
//     retention keep counts (hourly/daily/weekly/monthly/yearly, default 0).
//
// Mixing the modes, or selecting neither completely, is an ErrConflict;
// main treats that as fatal (exit 1). Both the classic sectioned borgmatic
// layout (location:/storage:/retention:) and the flattened modern layout
// are accepted.
//
// Watch(ctx, opts, onChange) uses fsnotify to re-resolve the configuration
// whenever the borgmatic file changes, handling the rename→create pattern
// used by atomic-save editors by re-adding the watch after each reload.
package config
