// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrentd

// fieldRule describes one raw snapshot field: how to detect a change, how to
// fold it into the entity, and which derived strings it owns. Derived
// strings are re-rendered exactly when their owning raw field changes and
// never otherwise.
type fieldRule struct {
	field   string
	equal   func(t *Torrent, snap TorrentSnapshot) bool
	apply   func(t *Torrent, snap TorrentSnapshot) any
	derived []derivedField
}

type derivedField struct {
	field string
	apply func(t *Torrent) string
}

// fieldRules is the complete diff table. Reconcile walks it generically;
// adding a field means adding a row, not another if-chain.
var fieldRules = []fieldRule{
	{
		field: "name",
		equal: func(t *Torrent, snap TorrentSnapshot) bool { return t.Name == snap.Name },
		apply: func(t *Torrent, snap TorrentSnapshot) any { t.Name = snap.Name; return t.Name },
	},
	{
		field: "size",
		equal: func(t *Torrent, snap TorrentSnapshot) bool { return t.Size == snap.Size },
		apply: func(t *Torrent, snap TorrentSnapshot) any { t.Size = snap.Size; return t.Size },
		derived: []derivedField{
			{field: "sizeFormatted", apply: func(t *Torrent) string {
				t.SizeFormatted = FormatBytes(t.Size)
				return t.SizeFormatted
			}},
		},
	},
	{
		field: "progress",
		equal: func(t *Torrent, snap TorrentSnapshot) bool { return t.Progress == snap.Progress },
		apply: func(t *Torrent, snap TorrentSnapshot) any { t.Progress = snap.Progress; return t.Progress },
		derived: []derivedField{
			{field: "progressFormatted", apply: func(t *Torrent) string {
				t.ProgressFormatted = FormatProgress(t.Progress)
				return t.ProgressFormatted
			}},
		},
	},
	{
		field: "downloadSpeed",
		equal: func(t *Torrent, snap TorrentSnapshot) bool { return t.DownloadSpeed == snap.DownloadSpeed },
		apply: func(t *Torrent, snap TorrentSnapshot) any { t.DownloadSpeed = snap.DownloadSpeed; return t.DownloadSpeed },
		derived: []derivedField{
			{field: "downloadSpeedFormatted", apply: func(t *Torrent) string {
				t.DownloadSpeedFormatted = FormatSpeed(t.DownloadSpeed)
				return t.DownloadSpeedFormatted
			}},
		},
	},
	{
		field: "uploadSpeed",
		equal: func(t *Torrent, snap TorrentSnapshot) bool { return t.UploadSpeed == snap.UploadSpeed },
		apply: func(t *Torrent, snap TorrentSnapshot) any { t.UploadSpeed = snap.UploadSpeed; return t.UploadSpeed },
		derived: []derivedField{
			{field: "uploadSpeedFormatted", apply: func(t *Torrent) string {
				t.UploadSpeedFormatted = FormatSpeed(t.UploadSpeed)
				return t.UploadSpeedFormatted
			}},
		},
	},
	{
		field: "eta",
		equal: func(t *Torrent, snap TorrentSnapshot) bool { return t.ETA == snap.ETA },
		apply: func(t *Torrent, snap TorrentSnapshot) any { t.ETA = snap.ETA; return t.ETA },
		derived: []derivedField{
			{field: "etaFormatted", apply: func(t *Torrent) string {
				t.ETAFormatted = FormatETA(t.ETA)
				return t.ETAFormatted
			}},
		},
	},
	{
		field: "state",
		equal: func(t *Torrent, snap TorrentSnapshot) bool { return t.State == snap.State },
		apply: func(t *Torrent, snap TorrentSnapshot) any { t.State = snap.State; return t.State },
	},
	{
		field: "savePath",
		equal: func(t *Torrent, snap TorrentSnapshot) bool { return t.SavePath == snap.SavePath },
		apply: func(t *Torrent, snap TorrentSnapshot) any { t.SavePath = snap.SavePath; return t.SavePath },
	},
	{
		field: "downloaded",
		equal: func(t *Torrent, snap TorrentSnapshot) bool { return t.Downloaded == snap.Downloaded },
		apply: func(t *Torrent, snap TorrentSnapshot) any { t.Downloaded = snap.Downloaded; return t.Downloaded },
		derived: []derivedField{
			{field: "downloadedFormatted", apply: func(t *Torrent) string {
				t.DownloadedFormatted = FormatBytes(t.Downloaded)
				return t.DownloadedFormatted
			}},
		},
	},
}

// Reconcile folds a fresh snapshot into the tracked entity and returns one
// FieldChange per raw field that differed, each immediately followed by the
// derived strings that field owns. Equal fields stay untouched and silent.
func Reconcile(t *Torrent, snap TorrentSnapshot) []FieldChange {
	var changes []FieldChange
	for i := range fieldRules {
		rule := &fieldRules[i]
		if rule.equal(t, snap) {
			continue
		}
		changes = append(changes, FieldChange{Hash: t.Hash, Field: rule.field, Value: rule.apply(t, snap)})
		for _, d := range rule.derived {
			changes = append(changes, FieldChange{Hash: t.Hash, Field: d.field, Value: d.apply(t)})
		}
	}
	return changes
}
