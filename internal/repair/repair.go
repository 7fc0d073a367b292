// Package repair applies code-addressed fixes to the issues of a validation
// report. Issues with codes it does not recognize are left untouched.
package repair

import (
	"go.uber.org/zap"

	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/internal/validation"
)

// Actions recorded on repaired issues.
const (
	ActionAxis             = "Axis system reset to canonical orientation."
	ActionSystemUnit       = "System unit reset to canonical scale."
	ActionTimeMode         = "Time mode reset to canonical mode."
	ActionTimeModeDegraded = "Time mode set, but custom frame-rate setter unavailable on this SDK."
	ActionTimeModeFailed   = "Unable to reset time mode due to incompatible SDK signature."
	ActionFrameRate        = "Custom frame rate synced to canonical value."
	ActionFrameRateFailed  = "Unable to set custom frame rate; setter unavailable."
	ActionTimeSpan         = "Global time span reset to a valid range."
	ActionClusterMatrices  = "Skin cluster matrices rebuilt from current pose."
	ActionBindPose         = "Bind pose reconstructed."
)

// BindPoseName names the synthesized bind pose.
const BindPoseName = "AutoBindPose"

type repairer struct {
	report    *validation.Report
	scene     store.Scene
	canonical *validation.Canonical
	log       *zap.Logger
	applied   []validation.Repair
}

// Apply repairs the scene in place for every recognized issue in report,
// marks the issues it handled and appends the actions to report.Repairs.
// The repairs of this call are returned.
func Apply(report *validation.Report, s store.Scene, canonical *validation.Canonical, log *zap.Logger) []validation.Repair {
	if canonical == nil {
		canonical = validation.DefaultCanonical()
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &repairer{report: report, scene: s, canonical: canonical, log: log}
	if c := report.Category(validation.CategoryGlobals); c != nil {
		for _, issue := range c.Issues {
			r.globals(issue)
		}
	}
	if c := report.Category(validation.CategorySkin); c != nil {
		r.skin(c)
	}
	report.Repairs = append(report.Repairs, r.applied...)
	return r.applied
}

func (r *repairer) record(issue *validation.Issue, object, action string) {
	if issue != nil {
		issue.FixApplied = action
	}
	if object == "" {
		object = validation.PathGlobals
	}
	r.applied = append(r.applied, validation.Repair{Object: object, Action: action})
	r.log.Debug("repair applied", zap.String("object", object), zap.String("action", action))
}

func (r *repairer) globals(issue *validation.Issue) {
	g := r.scene.Globals()
	canon := r.canonical
	switch issue.Code {
	case "globals.axis":
		if canon.Axis == nil {
			return
		}
		if err := g.SetAxisSystem(*canon.Axis); err != nil {
			r.log.Warn("axis system repair failed", zap.Error(err))
			return
		}
		r.record(issue, issue.ObjectPath, ActionAxis)

	case "globals.system_unit":
		if canon.Unit == nil {
			return
		}
		if err := g.SetSystemUnit(*canon.Unit); err != nil {
			r.log.Warn("system unit repair failed", zap.Error(err))
			return
		}
		r.record(issue, issue.ObjectPath, ActionSystemUnit)

	case "globals.time_mode":
		if canon.TimeMode == nil {
			return
		}
		if err := g.SetTimeMode(*canon.TimeMode); err != nil {
			r.log.Warn("time mode repair failed", zap.Error(err))
			r.record(issue, issue.ObjectPath, ActionTimeModeFailed)
			return
		}
		if canon.Custom() {
			if err := g.SetCustomFrameRate(canon.FrameRate); err != nil {
				r.record(issue, issue.ObjectPath, ActionTimeModeDegraded)
				return
			}
		}
		r.record(issue, issue.ObjectPath, ActionTimeMode)

	case "globals.frame_rate":
		if !canon.Custom() {
			return
		}
		if err := g.SetCustomFrameRate(canon.FrameRate); err != nil {
			r.record(issue, issue.ObjectPath, ActionFrameRateFailed)
			return
		}
		r.record(issue, issue.ObjectPath, ActionFrameRate)

	case "globals.time_span":
		span := canon.OneFrame()
		if canon.TimeSpan != nil && canon.TimeSpan.Valid() {
			span = *canon.TimeSpan
		}
		if err := g.SetDefaultTimeSpan(span); err != nil {
			r.log.Warn("time span repair failed", zap.Error(err))
			return
		}
		r.record(issue, issue.ObjectPath, ActionTimeSpan)
	}
}

func (r *repairer) skin(c *validation.CategoryReport) {
	missing := false
	var empty []*validation.Issue
	for _, issue := range c.Issues {
		switch issue.Code {
		case "skin.cluster_matrix", "skin.cluster_link_matrix":
			if r.rebuildClusters(issue) {
				r.record(issue, issue.ObjectPath, ActionClusterMatrices)
			}
		case "skin.bind_pose_missing":
			missing = true
		case "skin.bind_pose_empty":
			empty = append(empty, issue)
		}
	}
	if !missing && len(empty) == 0 {
		return
	}

	entries := r.bindPoseEntries()
	fixed := false
	if missing {
		if _, err := r.scene.AddPose(store.Pose{Name: BindPoseName, Bind: true, Entries: entries}); err != nil {
			r.log.Warn("bind pose repair failed", zap.Error(err))
		} else {
			fixed = true
		}
	}
	// Empty bind poses are filled in place so no empty pose survives.
	var filled []*validation.Issue
	for _, issue := range empty {
		if err := r.scene.SetPoseEntries(issue.ObjectID, entries); err != nil {
			r.log.Warn("bind pose repair failed", zap.Uint64("pose", uint64(issue.ObjectID)), zap.Error(err))
			continue
		}
		filled = append(filled, issue)
	}
	if !fixed && len(filled) == 0 {
		return
	}
	r.record(nil, validation.PathPoses, ActionBindPose)
	for _, issue := range c.Issues {
		if issue.Code == "skin.bind_pose_missing" && fixed {
			issue.FixApplied = ActionBindPose
		}
	}
	for _, issue := range filled {
		issue.FixApplied = ActionBindPose
	}
}

func (r *repairer) meshNode(issue *validation.Issue) (store.ID, bool) {
	if issue.ObjectID != 0 {
		if _, ok := r.scene.Mesh(issue.ObjectID); ok {
			return issue.ObjectID, true
		}
	}
	id, ok := store.FindByPath(r.scene, issue.ObjectPath)
	if !ok {
		return 0, false
	}
	_, ok = r.scene.Mesh(id)
	return id, ok
}

// rebuildClusters resets cluster matrices on the issue's mesh from the
// current world transforms of the mesh node and each linked joint.
func (r *repairer) rebuildClusters(issue *validation.Issue) bool {
	node, ok := r.meshNode(issue)
	if !ok {
		return false
	}
	mesh, _ := r.scene.Mesh(node)
	meshWorld, err := r.scene.WorldTransform(node)
	if err != nil {
		r.log.Warn("mesh world transform unreadable", zap.String("path", issue.ObjectPath), zap.Error(err))
		return false
	}
	for _, sk := range mesh.Skins {
		for _, cl := range sk.Clusters {
			if issue.Code == "skin.cluster_matrix" {
				if err := r.scene.SetClusterTransform(cl.ID, meshWorld); err != nil {
					r.log.Warn("cluster transform repair failed", zap.Uint64("cluster", uint64(cl.ID)), zap.Error(err))
				}
			}
			if !cl.HasLink {
				continue
			}
			linkWorld, err := r.scene.WorldTransform(cl.Link)
			if err != nil {
				continue
			}
			if err := r.scene.SetClusterLinkTransform(cl.ID, linkWorld); err != nil {
				r.log.Warn("cluster link transform repair failed", zap.Uint64("cluster", uint64(cl.ID)), zap.Error(err))
			}
		}
	}
	return true
}

// bindPoseEntries is the world transform of every node, root included.
func (r *repairer) bindPoseEntries() []store.PoseEntry {
	var entries []store.PoseEntry
	for _, id := range store.Descendants(r.scene, r.scene.Root()) {
		world, err := r.scene.WorldTransform(id)
		if err != nil {
			continue
		}
		entries = append(entries, store.PoseEntry{Node: id, Matrix: world})
	}
	return entries
}
