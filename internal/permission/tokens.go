package permission

// Permission tokens. The namespace is flat; the only structure is the
// membership of each token in the fixed classes below.
const (
	VideoDeleteAny = "video:delete_any"

	VideoEditOwn      = "video:edit_own"
	VideoDeleteOwn    = "video:delete_own"
	VideoPublishOwn   = "video:publish_own"
	VideoUnpublishOwn = "video:unpublish_own"

	VideoApprove = "video:approve"

	SpaceManage       = "space:manage"
	SpaceInvite       = "space:invite"
	SpaceKick         = "space:kick"
	SpaceAssignRoles  = "space:assign_roles"
	SpacePost         = "space:post"
	SpaceViewPrivate  = "space:view_private"
	SpaceViewHidden   = "space:view_hidden"
	VideoPostSpace    = "video:post_space"
	VideoReviewSpace  = "video:review_space"
	VideoApproveSpace = "video:approve_space"
	VideoPublishSpace = "video:publish_space"
	VideoUnpublish    = "video:unpublish_space"
	VideoModerate     = "video:moderate_space"
	CommentModerate   = "comment:moderate"
	CommentDeleteAny  = "comment:delete_any"
	SubscriptionMgmt  = "subscription:manage"

	FeedPublishGlobal  = "feed:publish_global"
	FeedModerateGlobal = "feed:moderate_global"
	SiteAdmin          = "site:admin"

	ModerationSuspend = "moderation:suspend"

	// SpaceWildcard in a user's per-space set satisfies any query in that space.
	SpaceWildcard = "admin"
)

// AdminShortcut bypasses every other rule, suspensions included.
const AdminShortcut = VideoDeleteAny

type tokenSet map[string]struct{}

func newTokenSet(tokens ...string) tokenSet {
	s := make(tokenSet, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}

func (s tokenSet) has(t string) bool {
	_, ok := s[t]
	return ok
}

var (
	postingPermissions = newTokenSet(SpacePost, VideoPostSpace)

	ownerPermissions = newTokenSet(VideoEditOwn, VideoDeleteOwn, VideoPublishOwn, VideoUnpublishOwn)

	spacePermissions = newTokenSet(
		SpaceManage, SpaceInvite, SpaceKick, SpaceAssignRoles,
		SpacePost, SpaceViewPrivate, SpaceViewHidden,
		VideoPostSpace, VideoReviewSpace, VideoApproveSpace, VideoPublishSpace, VideoUnpublish, VideoModerate,
		CommentModerate, CommentDeleteAny,
		SubscriptionMgmt,
	)

	anySpaceAuthority = []string{FeedPublishGlobal, FeedModerateGlobal, SiteAdmin}

	// Site moderators need no per-space role row for these.
	moderationShortcutPermissions = newTokenSet(VideoReviewSpace, VideoApproveSpace, VideoPublishSpace, VideoUnpublish)
)

func IsPostingPermission(p string) bool { return postingPermissions.has(p) }

func IsOwnerPermission(p string) bool { return ownerPermissions.has(p) }

func IsSpacePermission(p string) bool { return spacePermissions.has(p) }
