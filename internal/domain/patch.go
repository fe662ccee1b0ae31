package domain

// ContentPatch is a top-level partial snapshot. A nil field leaves the current
// value untouched; a non-nil field replaces it wholesale.
type ContentPatch struct {
	Hero          *Hero           `json:"hero,omitempty"`
	Bio           *Bio            `json:"bio,omitempty"`
	GalleryPhotos *[]GalleryPhoto `json:"gallery_photos,omitempty"`
	Videos        *[]Video        `json:"videos,omitempty"`
	SocialLinks   *[]SocialLink   `json:"social_links,omitempty"`
	Releases      *[]Release      `json:"releases,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ContentPatch) IsEmpty() bool {
	return p.Hero == nil && p.Bio == nil && p.GalleryPhotos == nil &&
		p.Videos == nil && p.SocialLinks == nil && p.Releases == nil
}

// Apply returns base with the patched fields replaced. base is not modified.
func (p ContentPatch) Apply(base ContentSnapshot) ContentSnapshot {
	out := base.Clone()
	if p.Hero != nil {
		out.Hero = *p.Hero
	}
	if p.Bio != nil {
		out.Bio = *p.Bio
	}
	if p.GalleryPhotos != nil {
		out.GalleryPhotos = append([]GalleryPhoto{}, (*p.GalleryPhotos)...)
	}
	if p.Videos != nil {
		out.Videos = append([]Video{}, (*p.Videos)...)
	}
	if p.SocialLinks != nil {
		out.SocialLinks = append([]SocialLink{}, (*p.SocialLinks)...)
	}
	if p.Releases != nil {
		out.Releases = append([]Release{}, (*p.Releases)...)
	}
	return out
}

// FullPatch turns a snapshot into a patch that replaces every field.
func FullPatch(s ContentSnapshot) ContentPatch {
	s = s.Clone()
	return ContentPatch{
		Hero:          &s.Hero,
		Bio:           &s.Bio,
		GalleryPhotos: &s.GalleryPhotos,
		Videos:        &s.Videos,
		SocialLinks:   &s.SocialLinks,
		Releases:      &s.Releases,
	}
}

// Fields lists the snapshot keys the patch touches, for logging.
func (p ContentPatch) Fields() []string {
	var fields []string
	if p.Hero != nil {
		fields = append(fields, "hero")
	}
	if p.Bio != nil {
		fields = append(fields, "bio")
	}
	if p.GalleryPhotos != nil {
		fields = append(fields, "gallery_photos")
	}
	if p.Videos != nil {
		fields = append(fields, "videos")
	}
	if p.SocialLinks != nil {
		fields = append(fields, "social_links")
	}
	if p.Releases != nil {
		fields = append(fields, "releases")
	}
	return fields
}
