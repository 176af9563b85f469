package scraper

import (
	"encoding/json"
	"fmt"
)

// In-page scripts are built as "/* scrape:<name> */" followed by a function
// expression applied to a JSON argument object on the last line.

const ordinalAttr = "data-scrape-ordinal"

func buildScript(name, fn string, args interface{}) string {
	if args == nil {
		args = struct{}{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		encoded = []byte("{}")
	}
	return fmt.Sprintf("/* scrape:%s */\n(%s)(%s)", name, fn, encoded)
}

const collectPostsFn = `function (args) {
  document.querySelectorAll('[' + args.attr + ']').forEach(function (el) { el.removeAttribute(args.attr); });
  for (var i = 0; i < args.selectors.length; i++) {
    var found = Array.prototype.slice.call(document.querySelectorAll(args.selectors[i]));
    if (found.length === 0) { continue; }
    found = found.slice(0, args.max);
    var html = found.map(function (el, idx) {
      el.setAttribute(args.attr, String(idx + 1));
      return el.outerHTML;
    });
    return {selector: args.selectors[i], html: html};
  }
  return {selector: "", html: []};
}`

type collectResult struct {
	Selector string   `json:"selector"`
	HTML     []string `json:"html"`
}

func collectPostsScript(selectors []string, max int) string {
	return buildScript("collect-posts", collectPostsFn, map[string]interface{}{
		"selectors": selectors,
		"max":       max,
		"attr":      ordinalAttr,
	})
}

const scrollFn = `function (args) {
  window.scrollTo(0, document.body.scrollHeight);
  return document.body.scrollHeight;
}`

func scrollScript() string {
	return buildScript("scroll", scrollFn, nil)
}

const emptyStateFn = `function (args) {
  return document.querySelector(args.selector) !== null;
}`

func emptyStateScript() string {
	return buildScript("empty-state", emptyStateFn, map[string]string{"selector": emptyStateSelector})
}

const userAgentFn = `function (args) {
  return navigator.userAgent;
}`

func userAgentScript() string {
	return buildScript("user-agent", userAgentFn, nil)
}

const submitByTextFn = `function (args) {
  var buttons = document.querySelectorAll('button');
  for (var i = 0; i < buttons.length; i++) {
    if ((buttons[i].innerText || '').indexOf(args.text) !== -1) {
      buttons[i].click();
      return true;
    }
  }
  return false;
}`

func submitByTextScript(text string) string {
	return buildScript("submit-by-text", submitByTextFn, map[string]string{"text": text})
}

const authorFallbackFn = `function (args) {
  var root = document.querySelector('[' + args.attr + '="' + args.ordinal + '"]');
  var result = {name: "", avatar: ""};
  if (!root) { return result; }
  var imgs = root.querySelectorAll('img');
  for (var i = 0; i < imgs.length; i++) {
    var img = imgs[i];
    var src = img.currentSrc || img.src || '';
    if (!src || src.indexOf('data:image') === 0) { continue; }
    var cls = (img.className || '').toString().toLowerCase();
    var alt = (img.alt || '').toLowerCase();
    var size = Math.max(img.width || 0, img.height || 0);
    var classHit = args.classHints.some(function (h) { return cls.indexOf(h) !== -1; });
    var altHit = args.altHints.some(function (h) { return alt.indexOf(h) !== -1; });
    if ((classHit || altHit) && size > 0 && size <= args.maxSize) {
      result.avatar = src;
      if (img.alt && img.alt.length < 100) { result.name = img.alt.replace(/^View\s+/i, '').replace(/['’]s\s+profile.*$/i, '').trim(); }
      break;
    }
  }
  if (!result.name) {
    var link = root.querySelector('a[href*="/in/"] span[aria-hidden="true"], a[href*="/company/"] span[aria-hidden="true"]');
    if (link) { result.name = (link.innerText || '').split('\n')[0].trim(); }
  }
  return result;
}`

type authorFallbackResult struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

func authorFallbackScript(ordinal int) string {
	return buildScript("author-fallback", authorFallbackFn, map[string]interface{}{
		"attr":       ordinalAttr,
		"ordinal":    ordinal,
		"classHints": avatarClassHints,
		"altHints":   avatarAltHints,
		"maxSize":    avatarMaxSize,
	})
}

const mediaScanFn = `function (args) {
  var root = document.querySelector('[' + args.attr + '="' + args.ordinal + '"]');
  var out = [];
  if (!root) { return out; }
  var seen = {};
  function excluded(text) {
    text = (text || '').toString().toLowerCase();
    return args.exclusions.some(function (x) { return text.indexOf(x) !== -1; });
  }
  root.querySelectorAll('img').forEach(function (img) {
    var src = img.currentSrc || img.src || '';
    if (!src || src.indexOf('data:') === 0 || seen[src]) { return; }
    if (excluded(src) || excluded(img.className) || excluded(img.alt)) { return; }
    var size = Math.max(img.naturalWidth || 0, img.width || 0);
    if (size > 0 && size < args.minSize) { return; }
    seen[src] = true;
    out.push({url: src, kind: 'image'});
  });
  root.querySelectorAll('video').forEach(function (video) {
    var src = video.currentSrc || video.src || '';
    if (!src) {
      var source = video.querySelector('source[src]');
      if (source) { src = source.src; }
    }
    if (!src || seen[src]) { return; }
    seen[src] = true;
    out.push({url: src, kind: 'video'});
  });
  return out;
}`

func mediaScanScript(ordinal int) string {
	return buildScript("media-scan", mediaScanFn, map[string]interface{}{
		"attr":       ordinalAttr,
		"ordinal":    ordinal,
		"exclusions": mediaExclusions,
		"minSize":    mediaMinSize,
	})
}

// blobCaptureFn draws the element bound to a blob URL onto a canvas and
// exports it as a JPEG data URL. ready=false means the element has not
// loaded enough to be drawn yet.
const blobCaptureFn = `function (args) {
  var scope = document.querySelector('[' + args.attr + '="' + args.ordinal + '"]') || document;
  var match = function (el) { return el.currentSrc === args.url || el.src === args.url || el.getAttribute('src') === args.url; };
  var video = Array.prototype.find.call(scope.querySelectorAll('video'), match);
  var image = Array.prototype.find.call(scope.querySelectorAll('img'), match);
  try {
    var canvas = document.createElement('canvas');
    var ctx = canvas.getContext('2d');
    if (video) {
      if (video.readyState < 2) { return {ready: false, kind: 'video'}; }
      canvas.width = video.videoWidth || video.clientWidth || 640;
      canvas.height = video.videoHeight || video.clientHeight || 480;
      ctx.drawImage(video, 0, 0, canvas.width, canvas.height);
      return {ready: true, kind: 'video', data: canvas.toDataURL('image/jpeg', 0.8)};
    }
    if (image) {
      if (!image.complete || image.naturalWidth === 0) { return {ready: false, kind: 'image'}; }
      canvas.width = image.naturalWidth;
      canvas.height = image.naturalHeight;
      ctx.drawImage(image, 0, 0);
      return {ready: true, kind: 'image', data: canvas.toDataURL('image/jpeg', 0.9)};
    }
    return {ready: false, error: 'no element bound to blob url'};
  } catch (e) {
    return {ready: false, error: String(e)};
  }
}`

type blobCaptureResult struct {
	Ready bool   `json:"ready"`
	Kind  string `json:"kind"`
	Data  string `json:"data"`
	Error string `json:"error"`
}

func blobCaptureScript(ordinal int, url string) string {
	return buildScript("blob-capture", blobCaptureFn, map[string]interface{}{
		"attr":    ordinalAttr,
		"ordinal": ordinal,
		"url":     url,
	})
}

const openPostMenuFn = `function (args) {
  var root = document.querySelector('[' + args.attr + '="' + args.ordinal + '"]');
  if (!root) { return false; }
  var button = root.querySelector(args.selector);
  if (!button) { return false; }
  button.scrollIntoView({block: 'center'});
  button.click();
  return true;
}`

func openPostMenuScript(ordinal int) string {
	return buildScript("open-post-menu", openPostMenuFn, map[string]interface{}{
		"attr":     ordinalAttr,
		"ordinal":  ordinal,
		"selector": postMenuSelector,
	})
}

const clickCopyLinkFn = `function (args) {
  var hit = document.evaluate(args.xpath, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
  if (!hit) { return false; }
  hit.click();
  return true;
}`

func clickCopyLinkScript() string {
	return buildScript("click-copy-link", clickCopyLinkFn, map[string]string{"xpath": copyLinkXPath})
}

const readClipboardFn = `function (args) {
  if (!navigator.clipboard || !navigator.clipboard.readText) { return ""; }
  return navigator.clipboard.readText().catch(function () { return ""; });
}`

func readClipboardScript() string {
	return buildScript("read-clipboard", readClipboardFn, nil)
}
