package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"miim/internal/database"
	"miim/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleBody = `<p>Le groupe Renault a inauguré lundi une nouvelle ligne de production dans son usine de Tanger,
portant la capacité du site à 400 000 véhicules par an. L'investissement de 2 milliards de dirhams
s'inscrit dans la stratégie industrielle du Maroc et renforce l'écosystème automobile national.</p>
<p>Les fournisseurs locaux, dont Yazaki Morocco et Lear Corporation, accompagnent cette expansion
avec de nouveaux contrats d'approvisionnement. Le taux d'intégration locale dépasse désormais 65%,
selon le ministère de l'Industrie et du Commerce, qui salue un partenariat exemplaire.</p>
<p>La zone franche de Tanger Automotive City accueille déjà plus de quarante entreprises du secteur,
et de nouvelles usines sont attendues d'ici la fin de l'année selon les responsables du projet.</p>`

func articlePage(title, published string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="fr-MA">
<head>
  <title>%s | Médias</title>
  <meta property="article:published_time" content="%s">
  <script type="application/ld+json">{"@context":"https://schema.org","@type":"NewsArticle","headline":"%s"}</script>
</head>
<body>
  <nav>Accueil Économie Industrie</nav>
  <article><h1>%s</h1>%s</article>
  <footer>Tous droits réservés</footer>
</body>
</html>`, title, published, title, title, articleBody)
}

func newTestSite(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/economie", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="/article/renault-tanger?utm_source=home">Renault</a>
			<a href="/article/renault-tanger">Renault (doublon)</a>
			<a href="/article/meteo-weekend">Météo</a>
			<a href="/article/broken">Cassé</a>
			<a href="/tag/industrie">Tag</a>
			<a href="https://other.example/article/x">Externe</a>
			<a href="mailto:redaction@example.ma">Contact</a>
		</body></html>`)
	})
	mux.HandleFunc("/article/renault-tanger", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage("Renault agrandit son usine de Tanger", "2026-02-27T09:30:00Z"))
	})
	mux.HandleFunc("/article/meteo-weekend", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><article><p>Un week-end ensoleillé est attendu sur l'ensemble du pays,
			avec des températures agréables et un vent faible. Les prévisionnistes annoncent un ciel dégagé
			du nord au sud, idéal pour les sorties en famille et les promenades au bord de la mer.</p></article></body></html>`)
	})
	mux.HandleFunc("/article/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestParseArticle(t *testing.T) {
	page, err := ParseArticle(articlePage("Renault agrandit son usine de Tanger", "2026-02-27T09:30:00Z"), "https://example.ma/a")
	require.NoError(t, err)

	assert.Equal(t, "Renault agrandit son usine de Tanger", page.Title)
	require.NotNil(t, page.PublishedAt)
	assert.Equal(t, time.Date(2026, 2, 27, 9, 30, 0, 0, time.UTC), *page.PublishedAt)
	assert.Equal(t, "fr", page.Language)
	assert.Contains(t, page.Text, "nouvelle ligne de production")
	assert.NotContains(t, page.Text, "  ")
}

func TestParseArticle_FallsBackToTitleAndTimeElement(t *testing.T) {
	raw := `<html><head><title>  Titre   simple </title></head><body>
		<time>12 mars 2025</time><div>Texte court.</div><script>var x = 1;</script></body></html>`
	page, err := ParseArticle(raw, "https://example.ma/b")
	require.NoError(t, err)

	assert.Equal(t, "Titre simple", page.Title)
	require.NotNil(t, page.PublishedAt)
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), *page.PublishedAt)
	assert.Contains(t, page.Text, "Texte court.")
	assert.NotContains(t, page.Text, "var x")
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-02-27", time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)},
		{"27/02/2026", time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)},
		{"27 février 2026", time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)},
		{"le 1er août 2025", time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)},
		{"2026-02-27T10:00:00+01:00", time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got := ParseDate(tt.in)
		require.NotNil(t, got, tt.in)
		assert.True(t, tt.want.Equal(*got), "%s: got %s", tt.in, got)
	}

	assert.Nil(t, ParseDate(""))
	assert.Nil(t, ParseDate("hier soir"))
	assert.Nil(t, ParseDate("32 février 2026"))
}

func TestRelevanceFilter(t *testing.T) {
	filter := NewRelevanceFilter(nil, 0)

	assert.True(t, filter.IsRelevant("Nouvelle USINE automobile à Tanger"))
	assert.False(t, filter.IsRelevant("Une seule usine"))
	assert.False(t, filter.IsRelevant(""))

	custom := NewRelevanceFilter([]string{"Phosphate"}, 1)
	assert.True(t, custom.IsRelevant("Le phosphate marocain"))
	assert.Equal(t, 0, custom.Matches("rien"))
}

func TestCanonicalizeURLAndHash(t *testing.T) {
	assert.Equal(t, "https://example.ma/a?id=3",
		CanonicalizeURL("https://example.ma/a?utm_source=x&id=3&fbclid=abc#comments"))
	assert.Equal(t, "https://example.ma/a", CanonicalizeURL("  https://example.ma/a  "))

	assert.Len(t, ContentHash("texte"), 64)
	assert.Equal(t, ContentHash("texte"), ContentHash("texte"))
	assert.NotEqual(t, ContentHash("texte"), ContentHash("texte "))
}

func TestHTMLSource_ArticleURLs(t *testing.T) {
	server := newTestSite(t)
	source, err := NewHTMLSource(SourceConfig{
		Name:        "test-site",
		ListingURLs: []string{server.URL + "/economie", server.URL + "/missing"},
		LinkPattern: `/article/`,
	}, NewPageFetcher(5*time.Second, 0))
	require.NoError(t, err)

	links, err := source.ArticleURLs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		server.URL + "/article/renault-tanger",
		server.URL + "/article/meteo-weekend",
		server.URL + "/article/broken",
	}, links)
}

func TestHTMLSource_Config(t *testing.T) {
	fetcher := NewPageFetcher(time.Second, 0)

	_, err := NewHTMLSource(SourceConfig{ListingURLs: []string{"https://example.ma"}}, fetcher)
	assert.Error(t, err)
	_, err = NewHTMLSource(SourceConfig{Name: "x"}, fetcher)
	assert.Error(t, err)
	_, err = NewHTMLSource(SourceConfig{Name: "x", ListingURLs: []string{"https://example.ma"}, LinkPattern: "("}, fetcher)
	assert.Error(t, err)

	source, err := NewHTMLSource(SourceConfig{Name: "x", ListingURLs: []string{"https://example.ma"}}, fetcher)
	require.NoError(t, err)
	assert.Equal(t, "a[href]", source.config.LinkSelector)
	assert.Equal(t, 30, source.config.MaxArticles)
}

func TestHTMLSource_AllListingsFail(t *testing.T) {
	server := newTestSite(t)
	source, err := NewHTMLSource(SourceConfig{Name: "down", ListingURLs: []string{server.URL + "/missing"}}, NewPageFetcher(time.Second, 0))
	require.NoError(t, err)

	_, err = source.Scrape(context.Background())
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	registry, err := RegistryFromConfig([]SourceConfig{
		{Name: "b-site", ListingURLs: []string{"https://b.example"}},
		{Name: "a-site", ListingURLs: []string{"https://a.example"}},
	}, NewPageFetcher(time.Second, 0))
	require.NoError(t, err)

	sources := registry.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, "a-site", sources[0].Name())

	_, ok := registry.Get("b-site")
	assert.True(t, ok)
	assert.Error(t, registry.Register(sources[0]))
}

func TestCollector_Collect(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	server := newTestSite(t)
	ctx := context.Background()

	registry, err := RegistryFromConfig([]SourceConfig{
		{Name: "test-site", ListingURLs: []string{server.URL + "/economie"}, LinkPattern: `/article/`},
		{Name: "down-site", ListingURLs: []string{server.URL + "/missing"}},
	}, NewPageFetcher(5*time.Second, 0))
	require.NoError(t, err)
	collector := NewCollector(db, registry, nil)

	added, err := collector.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, added, "only the industry article is kept")

	var articles []models.Article
	require.NoError(t, db.Find(&articles).Error)
	require.Len(t, articles, 1)
	article := articles[0]
	assert.Equal(t, server.URL+"/article/renault-tanger", article.SourceURL)
	assert.Equal(t, "test-site", article.SourceName)
	assert.Equal(t, models.ArticleStatusPending, article.ProcessingStatus)
	assert.Equal(t, ContentHash(article.ArticleText), article.RawContentHash)
	assert.True(t, strings.Contains(article.ArticleText, "Tanger"))
	require.NotNil(t, article.PublishedDate)

	again, err := collector.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again)

	var runs []models.ScraperRun
	require.NoError(t, db.Order("run_date ASC").Find(&runs).Error)
	require.Len(t, runs, 4)

	byStatus := map[string]int{}
	for _, run := range runs {
		byStatus[run.Status]++
		if run.SourceName == "down-site" {
			assert.Equal(t, RunStatusError, run.Status)
			assert.NotEmpty(t, run.ErrorMessage)
		}
	}
	assert.Equal(t, 2, byStatus[RunStatusSuccess])
	assert.Equal(t, 2, byStatus[RunStatusError])

	duplicates := 0
	for _, run := range runs {
		if run.SourceName == "test-site" {
			assert.Equal(t, 1, run.ArticlesFound)
			duplicates += run.ArticlesDuplicate
		}
	}
	assert.Equal(t, 1, duplicates, "the second pass sees the stored article")
}
