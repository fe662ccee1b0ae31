package domain

const (
	pressKitRoot  = "/PRESKIT MATERIAL/fotos croix/"
	soundcloudFmt = "&color=%23ff00ff&auto_play=false&hide_related=false&show_comments=true&show_user=true&show_reposts=false&show_teaser=true&visual=true"
)

// DefaultSnapshot returns the seed content used on first run and whenever no
// other source can be read.
func DefaultSnapshot() ContentSnapshot {
	return ContentSnapshot{
		Hero: Hero{
			Title:           "CROIX",
			Subtitle:        "Electronic Press Kit",
			Description1:    "DJ y Productor Chileno",
			Description2:    "Underground Techno • Oetraxxrecords",
			BackgroundImage: pressKitRoot + "DJ/1.jpeg",
		},
		Bio: Bio{
			Title: "Acerca de CROIX",
			Image: pressKitRoot + "DJ/2.jpeg",
			Paragraphs: [BioParagraphs]string{
				"**Croix** es un DJ y productor chileno que se ha convertido en una figura esencial del **techno underground e irreverente**. Fundador del sello **Oetraxxrecords**, su sonido se define por una **energía inagotable** y un uso audaz del sampling diseñado para el clímax de la pista.",
				"Su prolífica carrera en el estudio cuenta con lanzamientos en sellos internacionales y nacionales de renombre, destacando trabajos como el **Hot Rhythms EP** en **SpaceRecords**, **Calentando EP** en **Gruvalismo**, **Sustancia EP** en **KRAFT.rec**, y su track **Worker** bajo el sello **[One:Thirty]**.",
				"Más allá de sus lanzamientos en solitario, Croix ha dejado su marca en importantes compilados de varios artistas (VA), incluyendo **NASTY TRAX VOL.6** (con su track Acid Work), **ONE THIRTY Vol. 2**, **PHANTASOS 03** de **Oneiros Records**, e inicios potentes en los primeros volúmenes de **IMPCORE Records** y **KEEPISTFAST**.",
				"Su faceta colaborativa es igualmente sólida, destacando su trabajo constante con **TeeHC** en su propio sello, colaboraciones con **Jarod Beyzaga**, el lanzamiento **CCXXXIX** en **Obscur** junto a **Malisan**, y su reciente **Remix para el dúo francés Laddie** lanzado por **Lapsorecords**. Con una discografía en constante expansión, Croix garantiza una experiencia sónica cruda, técnica y de pura cultura de club.",
			},
		},
		GalleryPhotos: []GalleryPhoto{
			{ID: "dj-1", Src: pressKitRoot + "DJ/1.jpeg", Alt: "CROIX DJ Set 1", Featured: true, Category: GalleryCategoryDJ},
			{ID: "dj-2", Src: pressKitRoot + "DJ/2.jpeg", Alt: "CROIX DJ Set 2", Featured: true, Category: GalleryCategoryDJ},
			{ID: "dj-3", Src: pressKitRoot + "DJ/3.jpeg", Alt: "CROIX DJ Set 3", Category: GalleryCategoryDJ},
			{ID: "dj-4", Src: pressKitRoot + "DJ/4.jpeg", Alt: "CROIX DJ Set 4", Category: GalleryCategoryDJ},
			{ID: "studio-1", Src: pressKitRoot + "estudio/Fotos Croix _1.JPG", Alt: "CROIX Estudio Portrait", Featured: true, Category: GalleryCategoryStudio},
			{ID: "studio-2", Src: pressKitRoot + "estudio/Fotos Croix _2.JPG", Alt: "CROIX Estudio Session", Category: GalleryCategoryStudio},
			{ID: "studio-10", Src: pressKitRoot + "estudio/Fotos Croix _10.JPG", Alt: "CROIX Studio Work", Category: GalleryCategoryStudio},
			{ID: "studio-18", Src: pressKitRoot + "estudio/Fotos Croix _18.JPG", Alt: "CROIX Production", Category: GalleryCategoryStudio},
		},
		Videos: []Video{
			{
				ID:          "hot-rhythms-ep",
				Title:       "CROIX - Hot Rhythms EP",
				EmbedURL:    "https://w.soundcloud.com/player/?url=https%3A//api.soundcloud.com/playlists/1736687936" + soundcloudFmt,
				Description: "Hot Rhythms EP • SpaceRecords",
			},
			{
				ID:          "calentando-ep",
				Title:       "CROIX - Calentando EP",
				EmbedURL:    "https://w.soundcloud.com/player/?url=https%3A//api.soundcloud.com/playlists/1698160352" + soundcloudFmt,
				Description: "Calentando EP • Gruvalismo",
			},
		},
		SocialLinks: []SocialLink{
			{Platform: "Instagram", URL: "https://www.instagram.com/croix__/"},
			{Platform: "Spotify", URL: "https://open.spotify.com/intl-es/artist/7H3B36EQXldij3pvfgeDQk"},
			{Platform: "SoundCloud", URL: "https://soundcloud.com/c-roix"},
			{Platform: "Beatport", URL: "https://www.beatport.com/es/artist/croix/513368"},
			{Platform: "Email", URL: "mailto:tucroixdj@gmail.com"},
		},
		Releases: []Release{},
	}
}
