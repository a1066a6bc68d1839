package render

const nsP = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

const xmlDecl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const relsNS = `xmlns="http://schemas.openxmlformats.org/package/2006/relationships"`

const relBase = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"

const emptyGroup = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

const pptxXML = `
{{- define "content_types"}}` + xmlDecl + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Default Extension="png" ContentType="image/png"/>
<Default Extension="jpeg" ContentType="image/jpeg"/>
<Default Extension="gif" ContentType="image/gif"/>
<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>
<Override PartName="/ppt/presProps.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presProps+xml"/>
<Override PartName="/ppt/tableStyles.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.tableStyles+xml"/>
<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>
<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>
<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>
{{- range .Slides}}
<Override PartName="/ppt/slides/slide{{.}}.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>
{{- end}}
</Types>
{{- end}}

{{- define "root_rels"}}` + xmlDecl + `<Relationships ` + relsNS + `>
<Relationship Id="rId1" Type="` + relBase + `officeDocument" Target="ppt/presentation.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
</Relationships>
{{- end}}

{{- define "core"}}` + xmlDecl + `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>{{x .Title}}</dc:title>
<dc:creator>boarddeck</dc:creator>
</cp:coreProperties>
{{- end}}

{{- define "presentation"}}` + xmlDecl + `<p:presentation ` + nsP + ` saveSubsetFonts="1">
<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>
<p:sldIdLst>
{{- range .Slides}}<p:sldId id="{{add . 255}}" r:id="rId{{add . 1}}"/>{{end -}}
</p:sldIdLst>
<p:sldSz cx="12192000" cy="6858000"/>
<p:notesSz cx="6858000" cy="9144000"/>
</p:presentation>
{{- end}}

{{- define "presentation_rels"}}` + xmlDecl + `<Relationships ` + relsNS + `>
<Relationship Id="rId1" Type="` + relBase + `slideMaster" Target="slideMasters/slideMaster1.xml"/>
{{- range .Slides}}
<Relationship Id="rId{{add . 1}}" Type="` + relBase + `slide" Target="slides/slide{{.}}.xml"/>
{{- end}}
{{- $n := len .Slides}}
<Relationship Id="rId{{add $n 2}}" Type="` + relBase + `presProps" Target="presProps.xml"/>
<Relationship Id="rId{{add $n 3}}" Type="` + relBase + `tableStyles" Target="tableStyles.xml"/>
<Relationship Id="rId{{add $n 4}}" Type="` + relBase + `theme" Target="theme/theme1.xml"/>
</Relationships>
{{- end}}

{{- define "pres_props"}}` + xmlDecl + `<p:presentationPr ` + nsP + `/>
{{- end}}

{{- define "table_styles"}}` + xmlDecl + `<a:tblStyleLst xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" def="{5C22544A-7EE6-4342-B048-85BDC9FD1C3A}"/>
{{- end}}

{{- define "master"}}` + xmlDecl + `<p:sldMaster ` + nsP + `>
<p:cSld><p:bg><p:bgPr><a:solidFill><a:srgbClr val="{{.Background}}"/></a:solidFill><a:effectLst/></p:bgPr></p:bg>
<p:spTree>` + emptyGroup + `</p:spTree></p:cSld>
<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>
<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>
<p:txStyles><p:titleStyle/><p:bodyStyle/><p:otherStyle/></p:txStyles>
</p:sldMaster>
{{- end}}

{{- define "master_rels"}}` + xmlDecl + `<Relationships ` + relsNS + `>
<Relationship Id="rId1" Type="` + relBase + `slideLayout" Target="../slideLayouts/slideLayout1.xml"/>
<Relationship Id="rId2" Type="` + relBase + `theme" Target="../theme/theme1.xml"/>
</Relationships>
{{- end}}

{{- define "layout"}}` + xmlDecl + `<p:sldLayout ` + nsP + ` type="blank" preserve="1">
<p:cSld name="Blank"><p:spTree>` + emptyGroup + `</p:spTree></p:cSld>
<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>
</p:sldLayout>
{{- end}}

{{- define "layout_rels"}}` + xmlDecl + `<Relationships ` + relsNS + `>
<Relationship Id="rId1" Type="` + relBase + `slideMaster" Target="../slideMasters/slideMaster1.xml"/>
</Relationships>
{{- end}}

{{- define "theme"}}` + xmlDecl + `<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="boarddeck">
<a:themeElements>
<a:clrScheme name="boarddeck">
<a:dk1><a:srgbClr val="{{.Text}}"/></a:dk1>
<a:lt1><a:srgbClr val="{{.Background}}"/></a:lt1>
<a:dk2><a:srgbClr val="{{.Text}}"/></a:dk2>
<a:lt2><a:srgbClr val="{{.Background}}"/></a:lt2>
<a:accent1><a:srgbClr val="{{.Accent}}"/></a:accent1>
<a:accent2><a:srgbClr val="{{.Accent}}"/></a:accent2>
<a:accent3><a:srgbClr val="{{.Accent}}"/></a:accent3>
<a:accent4><a:srgbClr val="{{.Accent}}"/></a:accent4>
<a:accent5><a:srgbClr val="{{.Accent}}"/></a:accent5>
<a:accent6><a:srgbClr val="{{.Accent}}"/></a:accent6>
<a:hlink><a:srgbClr val="{{.Accent}}"/></a:hlink>
<a:folHlink><a:srgbClr val="{{.Accent}}"/></a:folHlink>
</a:clrScheme>
<a:fontScheme name="boarddeck">
<a:majorFont><a:latin typeface="{{x .Font}}"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>
<a:minorFont><a:latin typeface="{{x .Font}}"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>
</a:fontScheme>
<a:fmtScheme name="boarddeck">
<a:fillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:fillStyleLst>
<a:lnStyleLst><a:ln w="6350"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="12700"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="19050"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln></a:lnStyleLst>
<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>
<a:bgFillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:bgFillStyleLst>
</a:fmtScheme>
</a:themeElements>
<a:objectDefaults/>
<a:extraClrSchemeLst/>
</a:theme>
{{- end}}

{{- define "xfrm"}}<a:xfrm><a:off x="{{.X}}" y="{{.Y}}"/><a:ext cx="{{.CX}}" cy="{{.CY}}"/></a:xfrm>{{end}}

{{- define "run"}}<a:r><a:rPr lang="en-US" sz="{{.Size}}"{{if .Bold}} b="1"{{end}} dirty="0"><a:solidFill><a:srgbClr val="{{.Color}}"/></a:solidFill><a:latin typeface="{{x .Font}}"/></a:rPr><a:t>{{x .Text}}</a:t></a:r>{{end}}

{{- define "slide"}}` + xmlDecl + `<p:sld ` + nsP + `>
<p:cSld><p:spTree>` + emptyGroup + `
{{- range .Accents}}
<p:sp><p:nvSpPr><p:cNvPr id="{{.ID}}" name="Accent {{.ID}}"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr>{{template "xfrm" .}}<a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:solidFill><a:srgbClr val="{{$.Accent}}"/></a:solidFill><a:ln><a:noFill/></a:ln></p:spPr></p:sp>
{{- end}}
{{- with .Picture}}
<p:pic><p:nvPicPr><p:cNvPr id="{{.ID}}" name="Picture {{.ID}}" descr="{{x .Descr}}"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr><p:blipFill><a:blip r:embed="{{.RelID}}"/><a:stretch><a:fillRect/></a:stretch></p:blipFill><p:spPr>{{template "xfrm" .}}<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>
{{- end}}
{{- range .Paths}}
<p:sp><p:nvSpPr><p:cNvPr id="{{.ID}}" name="Diagram {{.ID}}" descr="{{x .Descr}}"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr>{{template "xfrm" .}}<a:custGeom><a:avLst/><a:gdLst/><a:ahLst/><a:cxnLst/><a:rect l="0" t="0" r="r" b="b"/><a:pathLst><a:path w="{{.CX}}" h="{{.CY}}"><a:moveTo><a:pt x="{{index .Start 0}}" y="{{index .Start 1}}"/></a:moveTo>
{{- range .Rest}}<a:lnTo><a:pt x="{{index . 0}}" y="{{index . 1}}"/></a:lnTo>{{end}}
{{- if .Closed}}<a:close/>{{end}}</a:path></a:pathLst></a:custGeom><a:noFill/><a:ln w="38100"><a:solidFill><a:srgbClr val="{{$.Accent}}"/></a:solidFill></a:ln></p:spPr></p:sp>
{{- end}}
{{- with .TitleBox}}
<p:sp><p:nvSpPr><p:cNvPr id="{{.ID}}" name="Title {{.ID}}"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr><p:spPr>{{template "xfrm" .}}<a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr><p:txBody><a:bodyPr wrap="square" anchor="b"><a:normAutofit/></a:bodyPr><a:lstStyle/>
{{- $size := .Size}}{{$center := .Centered}}
{{- range .Lines}}<a:p>{{if $center}}<a:pPr algn="ctr"/>{{end}}{{template "run" (run . $size true $.Text $.Font)}}</a:p>{{end -}}
</p:txBody></p:sp>
{{- end}}
{{- with .Body}}
<p:sp><p:nvSpPr><p:cNvPr id="{{.ID}}" name="Content {{.ID}}"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr><p:spPr>{{template "xfrm" .}}<a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr><p:txBody><a:bodyPr wrap="square" anchor="t"><a:normAutofit/></a:bodyPr><a:lstStyle/>
{{- $size := .Size}}
{{- range .Lines}}<a:p><a:pPr marL="342900" indent="-342900"><a:buFont typeface="Arial"/><a:buChar char="&#8226;"/></a:pPr>{{template "run" (run . $size false $.Text $.Font)}}</a:p>{{end -}}
</p:txBody></p:sp>
{{- end}}
</p:spTree></p:cSld>
<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>
</p:sld>
{{- end}}

{{- define "slide_rels"}}` + xmlDecl + `<Relationships ` + relsNS + `>
<Relationship Id="rId1" Type="` + relBase + `slideLayout" Target="../slideLayouts/slideLayout1.xml"/>
{{- if .Media}}
<Relationship Id="rId2" Type="` + relBase + `image" Target="../media/{{.Media}}"/>
{{- end}}
</Relationships>
{{- end}}
`
