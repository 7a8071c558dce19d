package site

// BootScript is served to browsers by the dev server. It renders the page
// named by the fragment through /api/render on load, on every hash change
// and on reload messages. window.docswitch is set by the server-generated
// config script.
const BootScript = `(function () {
  "use strict";
  var cfg = window.docswitch || {};
  var landing = cfg.landing || "main";
  var cls = cfg.replaceableClass || "replacable";

  function decode(raw) {
    try { return decodeURIComponent(raw); } catch (e) { return raw; }
  }

  function encode(page) {
    return page.split("/").map(encodeURIComponent).join("/");
  }

  function current() {
    return decode(window.location.hash.replace(/^#/, "")) || landing;
  }

  function render() {
    fetch("/api/render/" + encode(current()))
      .then(function (res) { return res.json(); })
      .then(function (data) {
        var els = document.getElementsByClassName(cls);
        var n = Math.min(els.length, data.elements.length);
        for (var i = 0; i < n; i++) {
          els[i].innerHTML = data.elements[i];
        }
      })
      .catch(function (err) { console.error("docswitch:", err); });
  }

  window.changePage = function (page) { window.location.hash = encode(page); };
  window.addEventListener("hashchange", render);

  if (cfg.reload) {
    var proto = window.location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + window.location.host + "/ws");
    ws.onmessage = function (ev) {
      var msg = JSON.parse(ev.data);
      if (msg.type === "reload") { render(); }
    };
  }

  // The server prerenders the landing page; any other fragment is
  // rendered here.
  if (!window.location.hash) {
    window.location.hash = landing;
  } else if (current() !== landing) {
    render();
  }
})();
`

// StaticScript is added to every page of a static build. Each page holds
// one rendered page name; a fragment naming another page loads that page's
// file, and names without a file load the 404 page. It reads
// window.docswitch, written by the generator next to it.
const StaticScript = `(function () {
  "use strict";
  var cfg = window.docswitch || {};
  var pages = cfg.pages || {};

  function decode(raw) {
    try { return decodeURIComponent(raw); } catch (e) { return raw; }
  }

  function encode(page) {
    return page.split("/").map(encodeURIComponent).join("/");
  }

  function current() {
    return decode(window.location.hash.replace(/^#/, ""));
  }

  function show(page) {
    if (page === cfg.page) { return; }
    var file = pages[page];
    if (!file) {
      if (cfg.missing) { return; }
      file = cfg.notFound;
    }
    var url = new URL(cfg.root + file, window.location.href);
    url.hash = encode(page);
    window.location.replace(url.href);
  }

  window.changePage = function (page) { window.location.hash = encode(page); };
  window.addEventListener("hashchange", function () {
    show(current() || cfg.landing);
  });

  // Pages below the site root carry a base element; fragment links must
  // still stay on the current page.
  if (cfg.root) {
    document.addEventListener("click", function (ev) {
      var link = ev.target.closest ? ev.target.closest('a[href^="#"]') : null;
      if (!link) { return; }
      ev.preventDefault();
      window.location.hash = link.getAttribute("href");
    });
  }

  var page = current();
  if (page) {
    show(page);
  } else if (cfg.page) {
    history.replaceState(null, "", "#" + encode(cfg.page));
  }
})();
`

// StarterShell is the shell page written by "docswitch init --scaffold".
const StarterShell = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Documentation</title>
  <link rel="stylesheet" href="style.css">
</head>
<body>
  <header class="replacable">{header}</header>
  <nav class="sidebar">
    <a href="#main" onclick="changePage('main')">Home</a>
    <a href="#guide" onclick="changePage('guide')">Guide</a>
  </nav>
  <main id="maindiv" class="content replacable"></main>
</body>
</html>
`

// StarterTable is the replacement table written next to StarterShell.
const StarterTable = `header:
  markup: <h1>Documentation</h1>
main:
  markdown: |
    # Welcome

    This page is the landing page. Edit pages.yml to change it.
guide:
  markdown: |
    # Guide

    Pages are selected by the part of the address after '#'.
`

// StarterCSS styles StarterShell.
const StarterCSS = `body {
  margin: 0;
  font-family: system-ui, sans-serif;
  display: grid;
  grid-template-columns: 14rem 1fr;
  grid-template-rows: auto 1fr;
  min-height: 100vh;
}
header { grid-column: 1 / 3; padding: 0 1.5rem; border-bottom: 1px solid #ddd; }
.sidebar { display: flex; flex-direction: column; gap: .5rem; padding: 1.5rem; background: #f6f8fa; }
.content { padding: 1.5rem 2rem; max-width: 48rem; }
.content iframe { width: 100%; }
`
