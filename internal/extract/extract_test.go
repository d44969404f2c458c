package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/gunpla-scrap/internal/models"
	"github.com/lukman83/gunpla-scrap/internal/site"
)

const galaxyPage = `<html><body>
<div class="grid">
  <div class="item">
    <a href="/products/rx-78-2"><img src="https://cdn.example.com/rx.jpg"></a>
    <span class="name">  RX-78-2 Gundam  </span>
    <span class="price">$45.00</span>
  </div>
  <div class="item">
    <a href="products/zaku-ii"></a>
    <span class="name">Zaku II</span>
  </div>
  <div class="item">
    <span class="name"></span>
    <span class="price">$10.00</span>
  </div>
  <div class="item">
    <a href="https://elsewhere.example.com/p/3">link</a>
    <span class="name">Gouf</span>
    <span class="price">$30.00</span>
    <span class="price">$99.00</span>
  </div>
</div>
</body></html>`

func TestExtract_GundamGalaxy(t *testing.T) {
	rule := site.GundamGalaxy.Rule()
	products, err := Extract(strings.NewReader(galaxyPage), "gundam_galaxy", rule)
	require.NoError(t, err)
	require.Len(t, products, 3)

	assert.Equal(t, models.Product{
		Title:  "RX-78-2 Gundam",
		Price:  "$45.00",
		Link:   "https://www.thegundamgalaxy.com/products/rx-78-2",
		Image:  "https://cdn.example.com/rx.jpg",
		Source: "gundam_galaxy",
	}, products[0])

	assert.Equal(t, "Zaku II", products[1].Title)
	assert.Equal(t, models.PriceUnavailable, products[1].Price)
	assert.Equal(t, "https://www.thegundamgalaxy.com/products/zaku-ii", products[1].Link)
	assert.Equal(t, "", products[1].Image)

	// First matching price wins; absolute links are kept.
	assert.Equal(t, "$30.00", products[2].Price)
	assert.Equal(t, "https://elsewhere.example.com/p/3", products[2].Link)
}

func TestExtract_NeverEmitsEmptyTitle(t *testing.T) {
	page := `<div class="product-item"><span class="product-item-price">$5</span></div>
<div class="product-item"><h3 class="product-item-title">   </h3></div>
<div class="product-item"><h3 class="product-item-title">HG Aerial</h3></div>`
	products, err := ExtractBytes([]byte(page), "gundam_place", site.GundamPlace.Rule())
	require.NoError(t, err)
	require.Len(t, products, 1)
	for _, p := range products {
		assert.NotEmpty(t, p.Title)
	}
	assert.Equal(t, "HG Aerial", products[0].Title)
}

func TestExtract_MissingLinkWithoutBaseURL(t *testing.T) {
	page := `<div class="product-card"><h3 class="product-card__title">EG Strike</h3><span class="product-card__price">$15</span></div>
<div class="product-card"><a href="/p/eg-rx"><h3 class="product-card__title">EG RX-78</h3></a></div>`
	products, err := ExtractBytes([]byte(page), "newtype", site.Newtype.Rule())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, models.NoLink, products[0].Link)
	// No base URL declared for newtype, so relative links stay relative.
	assert.Equal(t, "/p/eg-rx", products[1].Link)
}

func TestExtract_DefaultRule(t *testing.T) {
	page := `<div class="product"><h2>PG Unleashed</h2><span class="price">$250</span><a href="/pg"></a><img src="/pg.jpg"></div>
<div class="product-card"><h4>MGEX Strike Freedom</h4></div>`
	products, err := ExtractBytes([]byte(page), "hobby_link", site.DefaultRule())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "PG Unleashed", products[0].Title)
	assert.Equal(t, "$250", products[0].Price)
	assert.Equal(t, "/pg", products[0].Link)
	assert.Equal(t, "/pg.jpg", products[0].Image)
	assert.Equal(t, "MGEX Strike Freedom", products[1].Title)
}

func TestExtract_NoContainers(t *testing.T) {
	products, err := ExtractBytes([]byte(`<html><body><p>No results</p></body></html>`), "usags", site.USAGS.Rule())
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestExtract_Deterministic(t *testing.T) {
	rule := site.GundamGalaxy.Rule()
	a, err := ExtractBytes([]byte(galaxyPage), "gundam_galaxy", rule)
	require.NoError(t, err)
	b, err := ExtractBytes([]byte(galaxyPage), "gundam_galaxy", rule)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestExtract_DuplicatesKept(t *testing.T) {
	page := strings.Repeat(`<li class="s-item"><span class="s-item__title">HG Zaku</span><span class="s-item__price">$20</span></li>`, 2)
	products, err := ExtractBytes([]byte("<ul>"+page+"</ul>"), "ebay", site.Ebay.Rule())
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestExtract_EmptyContainerRule(t *testing.T) {
	_, err := ExtractBytes([]byte("<p></p>"), "x", site.ExtractionRule{Title: "h2"})
	assert.ErrorIs(t, err, site.ErrEmptyContainer)
}

func TestResolveLink(t *testing.T) {
	tests := []struct {
		base, link, want string
	}{
		{"https://example.com", "/p/1", "https://example.com/p/1"},
		{"https://example.com", "p/1", "https://example.com/p/1"},
		{"https://example.com/", "/p/1", "https://example.com/p/1"},
		{"https://example.com/", "p/1", "https://example.com/p/1"},
		{"https://example.com", "https://other.com/p/1", "https://other.com/p/1"},
		{"https://example.com", "HTTP://other.com/p", "HTTP://other.com/p"},
		{"https://example.com", "mailto:shop@example.com", "mailto:shop@example.com"},
		{"https://example.com", "//cdn.example.com/x", "https://cdn.example.com/x"},
		{"http://example.com", "//cdn.example.com/x", "http://cdn.example.com/x"},
		{"https://example.com", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveLink(tt.base, tt.link), "%s + %s", tt.base, tt.link)
	}
}
